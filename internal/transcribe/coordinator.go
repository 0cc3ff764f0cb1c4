package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"voxclip/internal/clipstore"
	"voxclip/internal/logging"
	"voxclip/internal/services"
)

// Transcriber converts one audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, audioPath, language string) (string, error)

// Transcribe calls f.
func (f TranscriberFunc) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	return f(ctx, audioPath, language)
}

// Outcome statuses.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Options selects which clips are transcribed and how.
type Options struct {
	Language  string
	Force     bool
	ClipNames []string
}

// Outcome records what happened to one clip.
type Outcome struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a Run. Clips holds the full clip list with transcription
// fields updated.
type Report struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Outcomes  []Outcome        `json:"outcomes"`
	Clips     []clipstore.Clip `json:"-"`
}

// Coordinator transcribes clips on a bounded pool.
type Coordinator struct {
	transcriber Transcriber
	workers     int
	clipTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewCoordinator constructs a Coordinator. workers below one is treated as one.
func NewCoordinator(transcriber Transcriber, workers int, clipTimeout time.Duration, logger *slog.Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		transcriber: transcriber,
		workers:     workers,
		clipTimeout: clipTimeout,
		logger:      logging.NewComponentLogger(logger, "transcribe"),
		now:         time.Now,
	}
}

// NormalizeLanguage validates a BCP-47 tag and returns its canonical form.
func NormalizeLanguage(tag string) (string, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "transcribe", "validate language", "language is required", nil)
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "validate language", fmt.Sprintf("invalid language %q", trimmed), err)
	}
	return parsed.String(), nil
}

// Run transcribes the selected clips found in dir. Unknown clip names fail
// with ErrNotFound before any provider call. Per-clip failures are recorded
// in the report and on the clip; the returned error is non-nil only for
// invalid input or when ctx ends before the batch finishes.
func (c *Coordinator) Run(ctx context.Context, dir string, clips []clipstore.Clip, opts Options) (Report, error) {
	lang, err := NormalizeLanguage(opts.Language)
	if err != nil {
		return Report{}, err
	}
	if c.transcriber == nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "transcribe", "run", "no transcription provider configured", nil)
	}

	updated := slices.Clone(clips)
	selected, err := selectClips(updated, opts.ClipNames)
	if err != nil {
		return Report{}, err
	}

	report := Report{Outcomes: make([]Outcome, 0, len(selected))}
	var (
		mu      sync.Mutex
		pending []int
	)
	for _, i := range selected {
		if updated[i].HasTranscript() && !opts.Force {
			report.Skipped++
			report.Outcomes = append(report.Outcomes, Outcome{Index: updated[i].Index, Name: updated[i].Name, Status: OutcomeSkipped, Transcript: updated[i].Transcript})
			continue
		}
		pending = append(pending, i)
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, i := range pending {
		g.Go(func() error {
			clip := &updated[i]
			text, callErr := c.transcribeOne(ctx, dir, clip, lang)
			now := c.now().UTC()

			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			clip.Transcript = ""
			clip.TranscriptError = ""
			clip.TranscriptLanguage = lang
			clip.TranscribedAt = &now
			outcome := Outcome{Index: clip.Index, Name: clip.Name}
			if callErr != nil {
				report.Failed++
				clip.TranscriptError = callErr.Error()
				outcome.Status = OutcomeFailed
				outcome.Error = callErr.Error()
			} else {
				report.Succeeded++
				clip.Transcript = text
				outcome.Status = OutcomeSucceeded
				outcome.Transcript = text
			}
			report.Outcomes = append(report.Outcomes, outcome)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Outcomes, func(a, b Outcome) int { return a.Index - b.Index })
	report.Clips = updated

	c.logger.Info("transcription batch finished",
		logging.String("language", lang),
		logging.Int("attempted", report.Attempted),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.String(logging.FieldEventType, "transcription_batch_complete"),
	)
	if err := ctx.Err(); err != nil {
		return report, services.Wrap(services.ErrTimeout, "transcribe", "run", "transcription interrupted", err)
	}
	return report, nil
}

func (c *Coordinator) transcribeOne(ctx context.Context, dir string, clip *clipstore.Clip, lang string) (string, error) {
	callCtx := ctx
	if c.clipTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.clipTimeout)
		defer cancel()
	}
	file := clip.File
	if file == "" {
		file = clip.Name
	}
	text, err := c.transcriber.Transcribe(callCtx, filepath.Join(dir, file), lang)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errors.New("empty transcript")
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "transcribe", clip.Name, "clip transcription timed out", err)
		}
		wrapped := services.Wrap(services.ErrTranscription, "transcribe", clip.Name, "", err)
		logging.WarnWithContext(c.logger, "clip transcription failed", "clip_transcription_failed",
			logging.String(logging.FieldClipName, clip.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry with transcribe --force or check the provider"),
			logging.String(logging.FieldImpact, "clip keeps no transcript"),
		)
		return "", wrapped
	}
	c.logger.Debug("clip transcribed",
		logging.String(logging.FieldClipName, clip.Name),
		logging.Int("chars", len(text)),
	)
	return text, nil
}

// selectClips returns the positions of the requested clips, or all clips
// when names is empty.
func selectClips(clips []clipstore.Clip, names []string) ([]int, error) {
	if len(names) == 0 {
		all := make([]int, len(clips))
		for i := range clips {
			all[i] = i
		}
		return all, nil
	}
	byName := make(map[string]int, len(clips))
	for i, clip := range clips {
		byName[clip.Name] = i
	}
	seen := make(map[int]struct{}, len(names))
	var missing []string
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := byName[strings.TrimSpace(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrNotFound, "transcribe", "select clips", "unknown clips: "+strings.Join(missing, ", "), nil)
	}
	slices.Sort(out)
	return out, nil
}
