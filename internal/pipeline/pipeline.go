package pipeline

import (
	"context"
	"log/slog"
	"time"

	"voxclip/internal/config"
	"voxclip/internal/logging"
	"voxclip/internal/notifications"
	"voxclip/internal/services"
)

// Pipeline executes commands against one set of dependencies.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New validates deps and returns a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	return &Pipeline{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
	}, nil
}

// Config exposes the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.Config { return p.deps.Config }

func (p *Pipeline) now() time.Time { return p.deps.Now().UTC() }

// begin validates videoID, takes the per-video lock, and annotates ctx.
func (p *Pipeline) begin(ctx context.Context, videoID, stage string) (context.Context, func(), error) {
	if videoID == "" {
		return ctx, nil, services.Wrap(services.ErrValidation, stage, "validate", "video_id is required", nil)
	}
	ctx = services.WithStage(services.WithVideoID(ctx, videoID), stage)
	unlock, err := p.deps.Locker.Lock(ctx, videoID)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, unlock, nil
}

// notify publishes event and logs delivery failures.
func (p *Pipeline) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// notifyFailure reports pipeline failures. Caller mistakes such as an
// unknown video or a busy lock are not announced.
func (p *Pipeline) notifyFailure(ctx context.Context, stage, videoID string, err error) {
	switch services.Kind(err) {
	case "validation", "not_found", "conflict":
		return
	}
	if ctx.Err() != nil {
		return
	}
	p.notify(ctx, notifications.EventError, notifications.Payload{
		"videoID": videoID,
		"context": stage,
		"error":   err,
	})
}
