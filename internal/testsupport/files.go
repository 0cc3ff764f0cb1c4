package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"voxclip/internal/audio/wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Voiced marks a tone burst in a synthetic recording, in seconds.
type Voiced struct {
	Start, End float64
}

// WriteSpeechWAV writes a mono PCM16 recording of totalSeconds at rate that
// is silent except for a 220 Hz tone inside each voiced range.
func WriteSpeechWAV(t testing.TB, path string, rate int, totalSeconds float64, voiced ...Voiced) {
	t.Helper()

	samples := make([]int16, int(totalSeconds*float64(rate)))
	for _, v := range voiced {
		from := max(0, int(v.Start*float64(rate)))
		to := min(len(samples), int(v.End*float64(rate)))
		for i := from; i < to; i++ {
			samples[i] = int16(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := wav.WriteSamples(path, rate, samples); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
