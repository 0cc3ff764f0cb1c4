package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"voxclip/internal/clipstore"
	"voxclip/internal/logging"
	"voxclip/internal/services"
)

const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 8 * time.Second
	clipContentType       = "audio/wav"
)

// Uploader stores one object and returns a reference to it.
type Uploader interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

// Outcome statuses.
const (
	OutcomeUploaded = "uploaded"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Outcome records what happened to one clip.
type Outcome struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	CloudRef string `json:"cloud_ref,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes a Run. Clips holds the full clip list with upload
// fields updated.
type Report struct {
	Attempted int              `json:"attempted"`
	Uploaded  int              `json:"uploaded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Outcomes  []Outcome        `json:"outcomes"`
	Clips     []clipstore.Clip `json:"-"`
}

// Confirmed returns the clips holding a storage reference.
func (r Report) Confirmed() []clipstore.Clip {
	out := make([]clipstore.Clip, 0, len(r.Clips))
	for _, clip := range r.Clips {
		if clip.Uploaded() {
			out = append(out, clip)
		}
	}
	return out
}

// Options configures a Coordinator.
type Options struct {
	Prefix         string
	Workers        int
	MaxAttempts    int
	UploadTimeout  time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Coordinator uploads clips with bounded retries.
type Coordinator struct {
	uploader Uploader
	opts     Options
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) CoordinatorOption {
	return func(c *Coordinator) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewCoordinator constructs a Coordinator, filling unset options with defaults.
func NewCoordinator(uploader Uploader, opts Options, logger *slog.Logger, extra ...CoordinatorOption) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	c := &Coordinator{
		uploader: uploader,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "cloudsync"),
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range extra {
		opt(c)
	}
	return c
}

// ObjectName returns the storage key for a clip.
func ObjectName(prefix, videoID, clipName string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(videoID, clipName)
	}
	return path.Join(prefix, videoID, clipName)
}

// Run uploads every clip in dir that has no storage reference yet. The
// returned error is non-nil only when ctx ends before the batch finishes.
func (c *Coordinator) Run(ctx context.Context, videoID, dir string, clips []clipstore.Clip) (Report, error) {
	if c.uploader == nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "cloudsync", "run", "no storage provider configured", nil)
	}
	updated := slices.Clone(clips)
	report := Report{Outcomes: make([]Outcome, 0, len(updated))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i := range updated {
		clip := &updated[i]
		if clip.Uploaded() {
			report.Skipped++
			report.Outcomes = append(report.Outcomes, Outcome{Index: clip.Index, Name: clip.Name, Status: OutcomeSkipped, CloudRef: clip.CloudRef})
			continue
		}
		g.Go(func() error {
			ref, attempts, err := c.uploadWithRetry(ctx, videoID, dir, *clip)
			now := c.now().UTC()

			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			outcome := Outcome{Index: clip.Index, Name: clip.Name, Attempts: attempts}
			if err != nil {
				report.Failed++
				clip.UploadError = err.Error()
				outcome.Status = OutcomeFailed
				outcome.Error = err.Error()
			} else {
				report.Uploaded++
				clip.CloudRef = ref
				clip.UploadError = ""
				clip.UploadedAt = &now
				outcome.Status = OutcomeUploaded
				outcome.CloudRef = ref
			}
			report.Outcomes = append(report.Outcomes, outcome)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Outcomes, func(a, b Outcome) int { return a.Index - b.Index })
	report.Clips = updated

	c.logger.Info("upload batch finished",
		logging.String(logging.FieldVideoID, videoID),
		logging.Int("attempted", report.Attempted),
		logging.Int("uploaded", report.Uploaded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.String(logging.FieldEventType, "upload_batch_complete"),
	)
	if err := ctx.Err(); err != nil {
		return report, services.Wrap(services.ErrTimeout, "cloudsync", "run", "upload interrupted", err)
	}
	return report, nil
}

func (c *Coordinator) uploadWithRetry(ctx context.Context, videoID, dir string, clip clipstore.Clip) (string, int, error) {
	objectName := ObjectName(c.opts.Prefix, videoID, clip.Name)
	file := clip.File
	if file == "" {
		file = clip.Name
	}
	source := filepath.Join(dir, file)

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		attempts = attempt
		ref, err := c.uploadOnce(ctx, source, objectName)
		if err == nil {
			c.logger.Debug("clip uploaded",
				logging.String(logging.FieldClipName, clip.Name),
				logging.String("cloud_ref", ref),
				logging.Int("attempt", attempt),
			)
			return ref, attempt, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == c.opts.MaxAttempts || ctx.Err() != nil {
			break
		}
		delay := Backoff(c.opts.InitialBackoff, c.opts.MaxBackoff, attempt)
		c.logger.Debug("retrying clip upload",
			logging.String(logging.FieldClipName, clip.Name),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}
	logging.WarnWithContext(c.logger, "clip upload failed", "clip_upload_failed",
		logging.String(logging.FieldClipName, clip.Name),
		logging.String("object", objectName),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "rerun save to retry failed clips"),
		logging.String(logging.FieldImpact, "clip is not cataloged and the video stays active"),
	)
	return "", attempts, services.Wrap(services.ErrUpload, "cloudsync", clip.Name, "", lastErr)
}

func (c *Coordinator) uploadOnce(ctx context.Context, source, objectName string) (string, error) {
	f, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat clip: %w", err)
	}

	callCtx := ctx
	if c.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.UploadTimeout)
		defer cancel()
	}
	ref, err := c.uploader.Upload(callCtx, objectName, f, info.Size(), clipContentType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("storage returned an empty reference")
	}
	return ref, nil
}

// Backoff returns the delay before retry number attempt (1-based).
func Backoff(initial, maxDelay time.Duration, attempt int) time.Duration {
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

// IsTransient reports whether an upload error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if services.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
