package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voxclip/internal/clipstore"
	"voxclip/internal/logging"
	"voxclip/internal/services"
	"voxclip/internal/transcribe"
)

// TranscribeRequest selects clips of an active video for transcription.
type TranscribeRequest struct {
	VideoID   string   `json:"video_id"`
	ClipNames []string `json:"clip_names,omitempty"`
	Force     bool     `json:"force,omitempty"`
	Language  string   `json:"language,omitempty"`
}

// TranscribeResult summarizes a transcription run.
type TranscribeResult struct {
	VideoID   string               `json:"video_id"`
	Language  string               `json:"language"`
	Attempted int                  `json:"attempted"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Clips     []transcribe.Outcome `json:"clips"`
}

// Transcribe runs speech-to-text over clips of an active video and records
// transcripts in clip metadata. A video that was never split or is already
// completed yields ErrNotFound without any change.
func (p *Pipeline) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error) {
	videoID := strings.TrimSpace(req.VideoID)
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = p.deps.Config.Transcription.Language
	}
	if _, err := transcribe.NormalizeLanguage(lang); err != nil {
		return TranscribeResult{}, err
	}

	ctx, unlock, err := p.begin(ctx, videoID, "transcribe")
	if err != nil {
		return TranscribeResult{}, err
	}
	defer unlock()
	logger := logging.WithContext(ctx, p.logger)

	loc, err := p.deps.Store.Locate(videoID)
	if err != nil {
		return TranscribeResult{}, err
	}
	if loc.Status != clipstore.StatusActive {
		return TranscribeResult{}, services.Wrap(services.ErrNotFound, "transcribe", "locate", fmt.Sprintf("video %s has no active clips", videoID), nil)
	}
	video, _, err := p.deps.Store.ReadVideo(videoID)
	if err != nil {
		return TranscribeResult{}, err
	}
	if !CanTransition(video.State, clipstore.StateTranscription) {
		return TranscribeResult{}, services.Wrap(services.ErrConflict, "transcribe", "transition", fmt.Sprintf("video %s is in state %s", videoID, video.State), nil)
	}
	clips, _, err := p.deps.Store.ReadClips(videoID)
	if err != nil {
		return TranscribeResult{}, err
	}

	if p.deps.Transcriber == nil {
		return TranscribeResult{}, services.Wrap(services.ErrConfiguration, "transcribe", "provider", "transcription.provider is none", nil)
	}
	coordinator := transcribe.NewCoordinator(p.deps.Transcriber, p.deps.Config.Workers.Transcription, p.deps.Config.ClipTimeout(), p.deps.Logger)
	report, runErr := coordinator.Run(ctx, loc.Dir, clips, transcribe.Options{
		Language:  lang,
		Force:     req.Force,
		ClipNames: req.ClipNames,
	})
	if report.Outcomes == nil {
		return TranscribeResult{}, runErr
	}

	if err := p.deps.Store.WriteClips(videoID, report.Clips); err != nil {
		return TranscribeResult{}, errors.Join(err, runErr)
	}
	if err := advance(&video, clipstore.StateTranscription, p.now()); err != nil {
		return TranscribeResult{}, err
	}
	if err := p.deps.Store.WriteVideo(videoID, video); err != nil {
		return TranscribeResult{}, errors.Join(err, runErr)
	}

	canonical, _ := transcribe.NormalizeLanguage(lang)
	result := TranscribeResult{
		VideoID:   videoID,
		Language:  canonical,
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
		Clips:     report.Outcomes,
	}
	logger.Info("transcription recorded",
		logging.Int("attempted", result.Attempted),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.String(logging.FieldEventType, "transcription_recorded"),
	)
	return result, runErr
}
