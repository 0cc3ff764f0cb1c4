package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voxclip/internal/clipstore"
	"voxclip/internal/fetch"
	"voxclip/internal/fileutil"
	"voxclip/internal/logging"
	"voxclip/internal/notifications"
	"voxclip/internal/segment"
	"voxclip/internal/services"
)

// SplitRequest asks for a video to be fetched and segmented. Nil overrides
// fall back to the configured segmenter defaults.
type SplitRequest struct {
	VideoRef          string   `json:"video_url"`
	VADAggressiveness *int     `json:"vad_aggressiveness,omitempty"`
	StartPadding      *float64 `json:"start_padding,omitempty"`
	EndPadding        *float64 `json:"end_padding,omitempty"`
}

// SplitResult describes the clips produced by Split.
type SplitResult struct {
	VideoID string `json:"video_id"`
	Video   Video  `json:"video_metadata"`
	Clips   []Clip `json:"clips"`
}

func (p *Pipeline) segmentOptions(req SplitRequest) (segment.Options, error) {
	cfg := p.deps.Config.Segmenter
	opts := segment.Options{
		Aggressiveness: cfg.VADAggressiveness,
		StartPadding:   cfg.StartPadding,
		EndPadding:     cfg.EndPadding,
		MinClipSeconds: cfg.MinClipSeconds,
		MaxClipSeconds: cfg.MaxClipSeconds,
		FrameMillis:    cfg.FrameMillis,
	}
	if req.VADAggressiveness != nil {
		opts.Aggressiveness = *req.VADAggressiveness
	}
	if req.StartPadding != nil {
		opts.StartPadding = *req.StartPadding
	}
	if req.EndPadding != nil {
		opts.EndPadding = *req.EndPadding
	}
	return opts, opts.Validate()
}

// Split fetches the referenced video, segments it, and publishes the clips
// under the active root. A completed video is rejected with ErrConflict.
// Acquisition and segmentation failures leave any previous split untouched.
func (p *Pipeline) Split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	result, err := p.split(ctx, req)
	if err != nil {
		videoID, _ := fetch.ExtractVideoID(req.VideoRef)
		p.notifyFailure(ctx, "split", videoID, err)
		return result, err
	}
	p.notify(ctx, notifications.EventSplitCompleted, notifications.Payload{
		"videoID": result.VideoID,
		"title":   result.Video.Title,
		"clips":   len(result.Clips),
	})
	return result, nil
}

func (p *Pipeline) split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	opts, err := p.segmentOptions(req)
	if err != nil {
		return SplitResult{}, err
	}
	videoID, err := fetch.ExtractVideoID(req.VideoRef)
	if err != nil {
		return SplitResult{}, err
	}
	ctx, unlock, err := p.begin(ctx, videoID, "split")
	if err != nil {
		return SplitResult{}, err
	}
	defer unlock()
	logger := logging.WithContext(ctx, p.logger)

	previous := clipstore.StateInput
	loc, err := p.deps.Store.Locate(videoID)
	switch {
	case err == nil && loc.Status == clipstore.StatusCompleted:
		return SplitResult{}, services.Wrap(services.ErrConflict, "split", "locate", fmt.Sprintf("video %s is already completed", videoID), nil)
	case err == nil:
		if existing, _, readErr := p.deps.Store.ReadVideo(videoID); readErr == nil {
			previous = existing.State
		}
	case !isNotFound(err):
		return SplitResult{}, err
	}
	if !CanTransition(previous, clipstore.StateProcessing) {
		return SplitResult{}, services.Wrap(services.ErrConflict, "split", "transition", fmt.Sprintf("video %s is in state %s", videoID, previous), nil)
	}

	if p.deps.Preflight != nil {
		if err := p.deps.Preflight(ctx); err != nil {
			return SplitResult{}, err
		}
	}

	workDir := filepath.Join(p.deps.Config.Paths.StagingDir, videoID)
	renderDir := filepath.Join(workDir, "clips")
	defer func() {
		_ = os.RemoveAll(renderDir)
	}()

	logger.Info("split started",
		logging.Int("vad_aggressiveness", opts.Aggressiveness),
		logging.Float64("start_padding", opts.StartPadding),
		logging.Float64("end_padding", opts.EndPadding),
		logging.String(logging.FieldEventType, "split_started"),
	)

	fetched, err := p.deps.Fetcher.Fetch(ctx, req.VideoRef, workDir)
	if err != nil {
		return SplitResult{}, err
	}
	cleanupAudio := func() {
		if !p.deps.Config.Fetch.KeepSourceAudio {
			_ = os.Remove(fetched.AudioPath)
		}
	}

	if err := os.RemoveAll(renderDir); err != nil {
		cleanupAudio()
		return SplitResult{}, fmt.Errorf("reset render dir: %w", err)
	}
	segmented, err := p.deps.Segmenter.Split(ctx, fetched.AudioPath, renderDir, videoID, opts)
	if err != nil {
		cleanupAudio()
		return SplitResult{}, err
	}

	clips := make([]Clip, 0, len(segmented.Clips))
	for _, planned := range segmented.Clips {
		clips = append(clips, Clip{
			Index:       planned.Index,
			Name:        planned.Name,
			Start:       planned.Raw.Start,
			End:         planned.Raw.End,
			PaddedStart: planned.Padded.Start,
			PaddedEnd:   planned.Padded.End,
			Duration:    planned.Duration(),
			File:        planned.Name,
		})
	}

	video := fetched.Video
	video.VideoID = videoID
	video.State = clipstore.StateProcessing
	video.Status = clipstore.StatusActive
	video.VADAggressiveness = opts.Aggressiveness
	video.StartPadding = opts.StartPadding
	video.EndPadding = opts.EndPadding
	video.ClipCount = len(clips)
	video.SampleRate = segmented.SampleRate
	if video.DurationSeconds <= 0 {
		video.DurationSeconds = segmented.DurationSeconds
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = p.now()
	}
	if !p.deps.Config.Fetch.KeepSourceAudio {
		video.RawAudioPath = ""
	}
	if err := advance(&video, clipstore.StateClips, p.now()); err != nil {
		cleanupAudio()
		return SplitResult{}, err
	}

	if err := p.publish(videoID, renderDir, video, clips, loc.Status == clipstore.StatusActive); err != nil {
		cleanupAudio()
		return SplitResult{}, err
	}
	cleanupAudio()

	logger.Info("split completed",
		logging.Int("clip_count", len(clips)),
		logging.Float64("duration_seconds", video.DurationSeconds),
		logging.String(logging.FieldEventType, "split_completed"),
	)
	return SplitResult{VideoID: videoID, Video: video, Clips: clips}, nil
}

// publish replaces the active directory contents with the rendered clips
// and writes clip metadata before video metadata.
func (p *Pipeline) publish(videoID, renderDir string, video Video, clips []Clip, existed bool) error {
	dir, err := p.deps.Store.PrepareActive(videoID)
	if err != nil {
		return err
	}
	rollback := func() {
		if !existed {
			_ = p.deps.Store.RemoveActive(videoID)
		}
	}
	for _, clip := range clips {
		if err := fileutil.MoveFile(filepath.Join(renderDir, clip.Name), filepath.Join(dir, clip.Name)); err != nil {
			rollback()
			return services.Wrap(services.ErrSegmentation, "split", "publish clip", clip.Name, err)
		}
	}
	if err := p.deps.Store.WriteClips(videoID, clips); err != nil {
		rollback()
		return err
	}
	if err := p.deps.Store.WriteVideo(videoID, video); err != nil {
		rollback()
		return err
	}
	return nil
}
