package clipstore

import "time"

// Status reports which root holds a video.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// State is the pipeline state persisted with a video.
type State string

const (
	StateInput         State = "input"
	StateProcessing    State = "processing"
	StateClips         State = "clips"
	StateTranscription State = "transcription"
	StateStorage       State = "storage"
	StateComplete      State = "complete"
)

// Video is persisted as video_metadata.json.
type Video struct {
	VideoID           string     `json:"video_id"`
	SourceURL         string     `json:"source_url"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Uploader          string     `json:"uploader,omitempty"`
	UploadDate        string     `json:"upload_date,omitempty"`
	Thumbnail         string     `json:"thumbnail,omitempty"`
	DurationSeconds   float64    `json:"duration_seconds"`
	RawAudioPath      string     `json:"raw_audio_path,omitempty"`
	SampleRate        int        `json:"sample_rate"`
	Status            Status     `json:"status"`
	State             State      `json:"state"`
	VADAggressiveness int        `json:"vad_aggressiveness"`
	StartPadding      float64    `json:"start_padding"`
	EndPadding        float64    `json:"end_padding"`
	ClipCount         int        `json:"clip_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Clip is one element of clip_metadata.json.
type Clip struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	PaddedStart float64 `json:"padded_start"`
	PaddedEnd   float64 `json:"padded_end"`
	Duration    float64 `json:"duration"`
	File        string  `json:"file"`

	Transcript         string     `json:"transcript,omitempty"`
	TranscriptError    string     `json:"transcript_error,omitempty"`
	TranscriptLanguage string     `json:"transcript_language,omitempty"`
	TranscribedAt      *time.Time `json:"transcribed_at,omitempty"`

	CloudRef    string     `json:"cloud_ref,omitempty"`
	UploadError string     `json:"upload_error,omitempty"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`

	CatalogID string `json:"catalog_id,omitempty"`
}

// HasTranscript reports whether a non-empty transcript is recorded.
func (c Clip) HasTranscript() bool { return c.Transcript != "" }

// Uploaded reports whether an object storage reference is recorded.
func (c Clip) Uploaded() bool { return c.CloudRef != "" }
