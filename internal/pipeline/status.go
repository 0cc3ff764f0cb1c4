package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"voxclip/internal/catalog"
	"voxclip/internal/clipstore"
	"voxclip/internal/services"
)

// StatusResult reports where a video lives and what has been recorded.
type StatusResult struct {
	VideoID          string            `json:"video_id"`
	Location         clipstore.Status  `json:"location"`
	Dir              string            `json:"dir"`
	Video            Video             `json:"video_metadata"`
	Clips            []Clip            `json:"clips"`
	CatalogVideo     *catalog.VideoRow `json:"catalog_video,omitempty"`
	CatalogClips     []catalog.ClipRow `json:"catalog_clips"`
	CatalogClipCount int               `json:"catalog_clip_count"`
	CatalogError     string            `json:"catalog_error,omitempty"`
}

// Status reads metadata and the catalog rows for a video. A video that was
// never saved has no catalog rows; a catalog failure is reported in
// CatalogError without failing the call.
func (p *Pipeline) Status(ctx context.Context, videoID string) (StatusResult, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return StatusResult{}, services.Wrap(services.ErrValidation, "status", "validate", "video_id is required", nil)
	}
	video, loc, err := p.deps.Store.ReadVideo(videoID)
	if err != nil {
		return StatusResult{}, err
	}
	clips, _, err := p.deps.Store.ReadClips(videoID)
	if err != nil {
		return StatusResult{}, err
	}
	result := StatusResult{
		VideoID:  videoID,
		Location: loc.Status,
		Dir:      loc.Dir,
		Video:    video,
		Clips:    clips,

		CatalogClips: []catalog.ClipRow{},
	}
	if p.deps.Catalog != nil {
		if err := p.readCatalog(ctx, &result); err != nil {
			result.CatalogError = err.Error()
		}
	}
	return result, nil
}

func (p *Pipeline) readCatalog(ctx context.Context, result *StatusResult) error {
	row, err := p.deps.Catalog.GetVideo(ctx, result.VideoID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	clips, err := p.deps.Catalog.ListClips(ctx, result.VideoID)
	if err != nil {
		return err
	}
	result.CatalogVideo = &row
	result.CatalogClips = clips
	result.CatalogClipCount = len(clips)
	return nil
}

// ClipPath resolves a clip file in whichever root holds the video.
func (p *Pipeline) ClipPath(_ context.Context, videoID, clipName string) (string, error) {
	return p.deps.Store.ClipPath(strings.TrimSpace(videoID), strings.TrimSpace(clipName))
}

// ClipBytes returns the raw WAV bytes of a clip or ErrNotFound.
func (p *Pipeline) ClipBytes(ctx context.Context, videoID, clipName string) ([]byte, error) {
	path, err := p.ClipPath(ctx, videoID, clipName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "clip", "read", fmt.Sprintf("clip %s not found", clipName), err)
		}
		return nil, fmt.Errorf("read clip: %w", err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
