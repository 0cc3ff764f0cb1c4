package whisperx

// Config selects the WhisperX model and device for clip transcription.
type Config struct {
	Model       string
	CUDAEnabled bool
	// CacheDir keeps uv and Hugging Face downloads between clips.
	CacheDir string
}

const (
	DefaultModel = "large-v3"
	UVXCommand   = "uvx"

	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"

	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	CPUComputeType = "float32"
)

// Decoding settings for short speech-bounded clips.
const (
	batchSize    = "1"
	chunkSize    = "10"
	beamSize     = "5"
	temperature  = "0.0"
	outputFormat = "json"
	vadMethod    = "silero"
)
