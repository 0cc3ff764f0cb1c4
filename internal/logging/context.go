package logging

import (
	"context"
	"log/slog"

	"voxclip/internal/services"
)

// Structured field keys shared across packages.
const (
	FieldComponent     = "component"
	FieldVideoID       = "video_id"
	FieldStage         = "stage"
	FieldClipName      = "clip_name"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// contextAttrs collects the video id, stage, and request id carried by ctx.
func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var attrs []any
	if id, ok := services.VideoIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldVideoID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, rid))
	}
	return attrs
}

// WithContext tags logger with the identifiers carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		return logger.With(attrs...)
	}
	return logger
}
