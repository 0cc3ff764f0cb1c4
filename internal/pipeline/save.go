package pipeline

import (
	"context"
	"fmt"
	"strings"

	"voxclip/internal/clipstore"
	"voxclip/internal/cloudsync"
	"voxclip/internal/logging"
	"voxclip/internal/notifications"
	"voxclip/internal/services"
)

// SaveRequest asks for a video to be uploaded, cataloged, and completed.
type SaveRequest struct {
	VideoID string `json:"video_id"`
}

// SaveResult summarizes a save.
type SaveResult struct {
	VideoID        string              `json:"video_id"`
	UploadedCount  int                 `json:"uploaded_count"`
	PersistedCount int                 `json:"persisted_count"`
	FailedClips    []string            `json:"failed_clips"`
	Completed      bool                `json:"completed"`
	Clips          []cloudsync.Outcome `json:"clips,omitempty"`
}

// Save uploads every clip still lacking a storage reference, persists the
// confirmed clips to the catalog, and moves the video to the completed root
// once every clip is confirmed. Clips that fail to upload keep the video
// active so a later save can retry them. A catalog failure or an interrupted
// upload leaves the video metadata as it was and the clip metadata untouched,
// so the retry uploads again. Saving a completed video
// re-persists its catalog rows from the completed metadata.
func (p *Pipeline) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	videoID := strings.TrimSpace(req.VideoID)
	ctx, unlock, err := p.begin(ctx, videoID, "save")
	if err != nil {
		return SaveResult{}, err
	}
	defer unlock()

	loc, err := p.deps.Store.Locate(videoID)
	if err != nil {
		return SaveResult{}, err
	}
	if p.deps.Catalog == nil {
		return SaveResult{}, services.Wrap(services.ErrConfiguration, "save", "catalog", "no catalog configured", nil)
	}
	if loc.Status == clipstore.StatusCompleted {
		return p.repersist(ctx, videoID)
	}
	result, err := p.saveActive(ctx, videoID)
	switch {
	case err != nil:
		p.notifyFailure(ctx, "save", videoID, err)
	case result.Completed:
		p.notify(ctx, notifications.EventVideoCompleted, notifications.Payload{
			"videoID":  videoID,
			"uploaded": result.UploadedCount,
		})
	default:
		p.notify(ctx, notifications.EventSaveIncomplete, notifications.Payload{
			"videoID": videoID,
			"failed":  len(result.FailedClips),
		})
	}
	return result, err
}

func (p *Pipeline) repersist(ctx context.Context, videoID string) (SaveResult, error) {
	logger := logging.WithContext(ctx, p.logger)
	video, _, err := p.deps.Store.ReadVideo(videoID)
	if err != nil {
		return SaveResult{}, err
	}
	clips, _, err := p.deps.Store.ReadClips(videoID)
	if err != nil {
		return SaveResult{}, err
	}
	confirmed := confirmedClips(clips)
	rows, err := p.deps.Catalog.Persist(ctx, video, confirmed)
	if err != nil {
		return SaveResult{}, err
	}
	logger.Info("completed video re-persisted",
		logging.Int("persisted", len(rows)),
		logging.String(logging.FieldEventType, "save_repersisted"),
	)
	return SaveResult{
		VideoID:        videoID,
		PersistedCount: len(rows),
		FailedClips:    []string{},
		Completed:      true,
	}, nil
}

func (p *Pipeline) saveActive(ctx context.Context, videoID string) (SaveResult, error) {
	logger := logging.WithContext(ctx, p.logger)
	video, _, err := p.deps.Store.ReadVideo(videoID)
	if err != nil {
		return SaveResult{}, err
	}
	clips, loc, err := p.deps.Store.ReadClips(videoID)
	if err != nil {
		return SaveResult{}, err
	}

	// A save that recorded completion but failed to move only needs the move.
	if video.State == clipstore.StateComplete {
		if _, err := p.deps.Store.Complete(videoID); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{VideoID: videoID, PersistedCount: len(confirmedClips(clips)), FailedClips: []string{}, Completed: true}, nil
	}

	original := video
	if err := advance(&video, clipstore.StateStorage, p.now()); err != nil {
		return SaveResult{}, err
	}
	if err := p.deps.Store.WriteVideo(videoID, video); err != nil {
		return SaveResult{}, err
	}

	coordinator := cloudsync.NewCoordinator(p.deps.Uploader, cloudsync.Options{
		Prefix:        p.deps.Config.Storage.Prefix,
		Workers:       p.deps.Config.Workers.Upload,
		MaxAttempts:   p.deps.Config.Storage.MaxAttempts,
		UploadTimeout: p.deps.Config.UploadTimeout(),
	}, p.deps.Logger, cloudsync.WithSleeper(p.deps.Sleep))
	report, runErr := coordinator.Run(ctx, videoID, loc.Dir, clips)
	if runErr != nil {
		p.restoreVideo(videoID, original)
		return SaveResult{}, runErr
	}

	// Storage references reach clip metadata only after the catalog accepts
	// the confirmed clips. Object names are deterministic, so a retry after a
	// catalog failure overwrites the same objects.
	clips = report.Clips
	confirmed := report.Confirmed()
	rows, err := p.deps.Catalog.Persist(ctx, video, confirmed)
	if err != nil {
		p.restoreVideo(videoID, original)
		logging.ErrorWithContext(logger, "catalog persistence failed", "save_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the catalog database and rerun save"),
			logging.String(logging.FieldImpact, "video stays active with clip metadata unchanged; clips upload again on retry"),
		)
		return SaveResult{}, err
	}
	ids := make(map[int]string, len(rows))
	for _, row := range rows {
		ids[row.ClipIndex] = row.ID
	}
	failed := make([]string, 0)
	for i := range clips {
		if id, ok := ids[clips[i].Index]; ok {
			clips[i].CatalogID = id
		}
		if !clips[i].Uploaded() {
			failed = append(failed, clips[i].Name)
		}
	}
	if err := p.deps.Store.WriteClips(videoID, clips); err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{
		VideoID:        videoID,
		UploadedCount:  report.Uploaded,
		PersistedCount: len(rows),
		FailedClips:    failed,
		Clips:          report.Outcomes,
	}
	if len(failed) > 0 {
		logging.WarnWithContext(logger, "save incomplete", "save_partial",
			logging.Int("failed_clips", len(failed)),
			logging.String(logging.FieldErrorHint, "rerun save to retry failed uploads"),
			logging.String(logging.FieldImpact, "video stays in the active directory"),
		)
		return result, nil
	}

	now := p.now()
	if err := advance(&video, clipstore.StateComplete, now); err != nil {
		return SaveResult{}, err
	}
	video.Status = clipstore.StatusCompleted
	video.CompletedAt = &now
	if err := p.deps.Store.WriteVideo(videoID, video); err != nil {
		return SaveResult{}, err
	}
	if _, err := p.deps.Store.Complete(videoID); err != nil {
		return SaveResult{}, fmt.Errorf("complete %s: %w", videoID, err)
	}
	result.Completed = true
	logger.Info("video saved",
		logging.Int("uploaded", result.UploadedCount),
		logging.Int("persisted", result.PersistedCount),
		logging.String(logging.FieldEventType, "save_completed"),
	)
	return result, nil
}

func (p *Pipeline) restoreVideo(videoID string, original Video) {
	if err := p.deps.Store.WriteVideo(videoID, original); err != nil {
		logging.WarnWithContext(p.logger, "state restore failed", "state_restore_failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun save; state is rewritten on the next attempt"),
		)
	}
}

func confirmedClips(clips []Clip) []Clip {
	out := make([]Clip, 0, len(clips))
	for _, clip := range clips {
		if clip.Uploaded() {
			out = append(out, clip)
		}
	}
	return out
}
