package pipeline

import (
	"context"
	"strings"

	"voxclip/internal/fetch"
	"voxclip/internal/services"
)

// PlaylistRequest asks for the videos of a playlist.
type PlaylistRequest struct {
	PlaylistURL string `json:"playlist_url" binding:"required"`
	// Limit caps the returned videos; 0 returns all.
	Limit int `json:"limit"`
}

// PlaylistResult lists playlist videos ready to be split one by one.
type PlaylistResult struct {
	PlaylistID     string                `json:"playlist_id"`
	PlaylistTitle  string                `json:"playlist_title"`
	TotalVideos    int                   `json:"total_videos"`
	ReturnedVideos int                   `json:"returned_videos"`
	Videos         []fetch.PlaylistVideo `json:"videos"`
}

// Playlist expands a playlist URL without touching any clip directory.
func (p *Pipeline) Playlist(ctx context.Context, req PlaylistRequest) (PlaylistResult, error) {
	if p.deps.Playlists == nil {
		return PlaylistResult{}, services.Wrap(services.ErrConfiguration, "playlist", "lister", "no playlist lister configured", nil)
	}
	ctx = services.WithStage(ctx, "playlist")
	list, err := p.deps.Playlists.Playlist(ctx, strings.TrimSpace(req.PlaylistURL), req.Limit)
	if err != nil {
		return PlaylistResult{}, err
	}
	return PlaylistResult{
		PlaylistID:     list.PlaylistID,
		PlaylistTitle:  list.Title,
		TotalVideos:    list.TotalVideos,
		ReturnedVideos: len(list.Videos),
		Videos:         list.Videos,
	}, nil
}
