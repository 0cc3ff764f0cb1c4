package segment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"voxclip/internal/audio/wav"
	"voxclip/internal/logging"
	"voxclip/internal/services"
	"voxclip/internal/vad"
)

// ClassifierFactory builds a frame classifier for an aggressiveness level.
type ClassifierFactory func(level int) (vad.FrameClassifier, error)

// DefaultClassifier returns the calibrated energy classifier.
func DefaultClassifier(level int) (vad.FrameClassifier, error) {
	return vad.NewEnergyClassifier(level)
}

// Segmenter splits recordings into speech clips.
type Segmenter struct {
	newClassifier ClassifierFactory
	logger        *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithClassifierFactory overrides the frame classifier.
func WithClassifierFactory(factory ClassifierFactory) Option {
	return func(s *Segmenter) {
		if factory != nil {
			s.newClassifier = factory
		}
	}
}

// New constructs a Segmenter.
func New(logger *slog.Logger, opts ...Option) *Segmenter {
	s := &Segmenter{
		newClassifier: DefaultClassifier,
		logger:        logging.NewComponentLogger(logger, "segmenter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes a segmentation run.
type Result struct {
	Clips           []Clip
	DurationSeconds float64
	SampleRate      int
	VoicedSpans     int
}

// Split segments the WAV file at audioPath and renders each clip into outDir.
// Zero voiced frames yields zero clips and no error.
func (s *Segmenter) Split(ctx context.Context, audioPath, outDir, videoID string, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if opts.FrameMillis == 0 {
		opts.FrameMillis = 30
	}
	logger := logging.WithContext(ctx, s.logger)

	reader, err := wav.Open(audioPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrSegmentation, "split", "open audio", filepath.Base(audioPath), err)
	}
	defer reader.Close()

	rate := reader.Format.SampleRate
	frameSamples, err := vad.FrameSamples(rate, opts.FrameMillis)
	if err != nil {
		return Result{}, services.Wrap(services.ErrSegmentation, "split", "frame audio", "", err)
	}
	samples, err := reader.Samples()
	if err != nil {
		return Result{}, services.Wrap(services.ErrSegmentation, "split", "decode audio", "", err)
	}
	classifier, err := s.newClassifier(opts.Aggressiveness)
	if err != nil {
		return Result{}, services.Wrap(services.ErrSegmentation, "split", "build classifier", "", err)
	}

	raw, err := DetectSpans(samples, rate, frameSamples, classifier)
	if err != nil {
		return Result{}, err
	}
	duration := reader.Seconds()
	clips := Plan(raw, duration, opts)

	logger.Debug("segmentation planned",
		logging.Int("voiced_spans", len(raw)),
		logging.Int("clip_count", len(clips)),
		logging.Float64("duration_seconds", duration),
		logging.String(logging.FieldEventType, "segments_planned"),
	)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrSegmentation, "split", "create clip dir", outDir, err)
	}
	for i := range clips {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		clips[i].Name = ClipName(videoID, clips[i].Index)
		start := int64(math.Round(clips[i].Padded.Start * float64(rate)))
		end := int64(math.Round(clips[i].Padded.End * float64(rate)))
		if err := wav.WriteRange(filepath.Join(outDir, clips[i].Name), reader, start, end); err != nil {
			return Result{}, services.Wrap(services.ErrSegmentation, "split", "render clip", clips[i].Name, err)
		}
	}

	logger.Info("clips rendered",
		logging.Int("clip_count", len(clips)),
		logging.Int("voiced_spans", len(raw)),
		logging.String(logging.FieldEventType, "clips_rendered"),
	)

	return Result{Clips: clips, DurationSeconds: duration, SampleRate: rate, VoicedSpans: len(raw)}, nil
}

// Smoothing window for DetectSpans, in frames.
const (
	windowFrames  = 10
	triggerVoiced = 0.9
)

// DetectSpans classifies each full frame and collects voiced regions with a
// sliding window of ten frames. A region opens when more than 90% of the
// window is voiced and closes when more than 90% is unvoiced. Each span runs
// from the first to the last voiced frame of its region, so gaps shorter than
// the window are bridged and bursts shorter than it are dropped. A trailing
// partial frame is ignored.
func DetectSpans(samples []int16, sampleRate, frameSamples int, classifier vad.FrameClassifier) ([]Span, error) {
	if frameSamples <= 0 {
		return nil, services.Wrap(services.ErrSegmentation, "split", "detect speech", fmt.Sprintf("invalid frame size %d", frameSamples), nil)
	}
	if cal, ok := classifier.(vad.Calibrator); ok {
		if err := cal.Calibrate(samples, sampleRate, frameSamples); err != nil {
			return nil, services.Wrap(services.ErrSegmentation, "split", "calibrate classifier", "", err)
		}
	}

	frameSeconds := float64(frameSamples) / float64(sampleRate)
	frames := len(samples) / frameSamples
	var (
		spans     []Span
		window    ring
		triggered bool
		first     int
		last      int
	)
	for i := range frames {
		voiced, err := classifier.IsSpeech(samples[i*frameSamples:(i+1)*frameSamples], sampleRate)
		if err != nil {
			return nil, services.Wrap(services.ErrSegmentation, "split", "classify frame", fmt.Sprintf("frame %d", i), err)
		}
		window.push(i, voiced)
		if voiced && triggered {
			last = i
		}
		switch {
		case !triggered && window.voiced() > triggerVoiced*windowFrames:
			triggered = true
			first, last = window.firstVoiced(), i
		case triggered && window.unvoiced() > triggerVoiced*windowFrames:
			triggered = false
			spans = append(spans, frameSpan(first, last+1, frameSeconds))
			window.reset()
		}
	}
	if triggered {
		spans = append(spans, frameSpan(first, last+1, frameSeconds))
	}
	return spans, nil
}

// ring holds the classification of the most recent frames.
type ring struct {
	index  [windowFrames]int
	voice  [windowFrames]bool
	next   int
	filled int
}

func (r *ring) push(frame int, voiced bool) {
	r.index[r.next], r.voice[r.next] = frame, voiced
	r.next = (r.next + 1) % windowFrames
	r.filled = min(r.filled+1, windowFrames)
}

func (r *ring) reset() { *r = ring{} }

func (r *ring) voiced() float64 {
	n := 0
	for k := range r.filled {
		if r.voice[(r.next-r.filled+k+windowFrames)%windowFrames] {
			n++
		}
	}
	return float64(n)
}

func (r *ring) unvoiced() float64 { return float64(r.filled) - r.voiced() }

// firstVoiced returns the oldest voiced frame in the window, or -1.
func (r *ring) firstVoiced() int {
	for k := range r.filled {
		slot := (r.next - r.filled + k + windowFrames) % windowFrames
		if r.voice[slot] {
			return r.index[slot]
		}
	}
	return -1
}

func frameSpan(first, end int, frameSeconds float64) Span {
	return Span{Start: roundMicros(float64(first) * frameSeconds), End: roundMicros(float64(end) * frameSeconds)}
}

func roundMicros(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
