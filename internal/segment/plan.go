package segment

import (
	"fmt"
	"math"
	"slices"

	"voxclip/internal/services"
)

// lengthEpsilon absorbs float rounding when comparing clip lengths.
const lengthEpsilon = 1e-9

// Span is a time range in seconds.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s Span) Duration() float64 { return s.End - s.Start }

// Clip is a planned output segment.
type Clip struct {
	Index int
	Name  string
	// Raw covers the voiced spans merged into this clip, before padding.
	Raw    Span
	Padded Span
}

// Duration returns the padded length, which is the rendered length.
func (c Clip) Duration() float64 { return c.Padded.Duration() }

// Options controls segmentation.
type Options struct {
	Aggressiveness int
	StartPadding   float64
	EndPadding     float64
	MinClipSeconds float64
	// MaxClipSeconds of 0 disables the upper bound.
	MaxClipSeconds float64
	FrameMillis    int
}

// Validate reports request-level problems as validation errors.
func (o Options) Validate() error {
	switch {
	case o.Aggressiveness < 0 || o.Aggressiveness > 3:
		return services.Wrap(services.ErrValidation, "split", "validate options", fmt.Sprintf("vad_aggressiveness must be 0-3, got %d", o.Aggressiveness), nil)
	case o.StartPadding < 0 || math.IsNaN(o.StartPadding) || math.IsInf(o.StartPadding, 0):
		return services.Wrap(services.ErrValidation, "split", "validate options", "start_padding must be a finite value >= 0", nil)
	case o.EndPadding < 0 || math.IsNaN(o.EndPadding) || math.IsInf(o.EndPadding, 0):
		return services.Wrap(services.ErrValidation, "split", "validate options", "end_padding must be a finite value >= 0", nil)
	case o.MinClipSeconds < 0:
		return services.Wrap(services.ErrValidation, "split", "validate options", "min_clip_seconds must be >= 0", nil)
	case o.MaxClipSeconds < 0 || (o.MaxClipSeconds > 0 && o.MaxClipSeconds < o.MinClipSeconds):
		return services.Wrap(services.ErrValidation, "split", "validate options", "max_clip_seconds must be 0 or >= min_clip_seconds", nil)
	}
	return nil
}

// Plan pads raw voiced spans, merges padded spans that overlap or touch,
// drops spans outside the length bounds, and numbers the survivors.
// duration is the recording length used for clamping.
func Plan(raw []Span, duration float64, opts Options) []Clip {
	if len(raw) == 0 {
		return nil
	}
	sorted := slices.Clone(raw)
	slices.SortFunc(sorted, func(a, b Span) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Clip, 0, len(sorted))
	for _, span := range sorted {
		padded := Span{
			Start: clamp(span.Start-opts.StartPadding, 0, duration),
			End:   clamp(span.End+opts.EndPadding, 0, duration),
		}
		if n := len(merged); n > 0 && padded.Start <= merged[n-1].Padded.End {
			last := &merged[n-1]
			last.Padded.End = math.Max(last.Padded.End, padded.End)
			last.Raw.End = math.Max(last.Raw.End, span.End)
			continue
		}
		merged = append(merged, Clip{Raw: span, Padded: padded})
	}

	out := merged[:0]
	for _, clip := range merged {
		length := clip.Duration()
		if length+lengthEpsilon < opts.MinClipSeconds {
			continue
		}
		if opts.MaxClipSeconds > 0 && length > opts.MaxClipSeconds+lengthEpsilon {
			continue
		}
		clip.Index = len(out) + 1
		out = append(out, clip)
	}
	return out
}

// ClipName returns the file name for the clip at index.
func ClipName(videoID string, index int) string {
	return fmt.Sprintf("%s-%03d.wav", videoID, index)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
