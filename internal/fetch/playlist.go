package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"voxclip/internal/logging"
	"voxclip/internal/services"
)

// PlaylistVideo is one entry of an expanded playlist.
type PlaylistVideo struct {
	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Playlist lists the videos of a playlist without downloading them.
type Playlist struct {
	PlaylistID  string          `json:"playlist_id"`
	Title       string          `json:"playlist_title"`
	TotalVideos int             `json:"total_videos"`
	Videos      []PlaylistVideo `json:"videos"`
}

// PlaylistLister expands a playlist reference.
type PlaylistLister interface {
	Playlist(ctx context.Context, ref string, limit int) (Playlist, error)
}

type flatPlaylist struct {
	Type          string      `json:"_type"`
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	PlaylistCount int         `json:"playlist_count"`
	Entries       []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
	Thumbnail  string   `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// Playlist expands ref with a flat yt-dlp listing. A positive limit caps the
// returned entries; zero returns all of them. Entries without an id are
// skipped.
func (f *Fetcher) Playlist(ctx context.Context, ref string, limit int) (Playlist, error) {
	ref = strings.TrimSpace(ref)
	if err := validatePlaylistURL(ref); err != nil {
		return Playlist{}, err
	}
	if limit < 0 {
		return Playlist{}, services.Wrap(services.ErrValidation, "fetch", "playlist", fmt.Sprintf("limit must be >= 0, got %d", limit), nil)
	}

	ctx, cancel := withSeconds(ctx, f.cfg.MetadataTimeoutSeconds)
	defer cancel()
	args := []string{"--flat-playlist", "--dump-single-json", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	args = append(args, f.cookieArgs()...)
	args = append(args, ref)
	out, err := f.run(ctx, f.cfg.YtDlpBinary, args...)
	if err != nil {
		return Playlist{}, playlistError(err)
	}

	var raw flatPlaylist
	if err := json.Unmarshal(out, &raw); err != nil {
		return Playlist{}, acquisitionError("playlist", "decode yt-dlp listing", err)
	}
	if raw.Type != "playlist" {
		return Playlist{}, services.Wrap(services.ErrValidation, "fetch", "playlist", "reference is not a playlist", nil)
	}

	list := Playlist{PlaylistID: raw.ID, Title: raw.Title, Videos: make([]PlaylistVideo, 0, len(raw.Entries))}
	if list.PlaylistID == "" {
		list.PlaylistID = "unknown"
	}
	if list.Title == "" {
		list.Title = "Unknown Playlist"
	}
	for _, entry := range raw.Entries {
		if limit > 0 && len(list.Videos) == limit {
			break
		}
		if entry.ID == "" {
			continue
		}
		video := PlaylistVideo{
			VideoID:   entry.ID,
			URL:       CanonicalURL(entry.ID),
			Title:     entry.Title,
			Thumbnail: entry.Thumbnail,
		}
		if entry.Duration != nil {
			video.Duration = int(math.Round(*entry.Duration))
		}
		if video.Thumbnail == "" && len(entry.Thumbnails) > 0 {
			video.Thumbnail = entry.Thumbnails[len(entry.Thumbnails)-1].URL
		}
		list.Videos = append(list.Videos, video)
	}
	list.TotalVideos = raw.PlaylistCount
	if list.TotalVideos < len(list.Videos) {
		list.TotalVideos = len(list.Videos)
	}

	f.logger.Info("playlist expanded",
		logging.String("playlist_id", list.PlaylistID),
		logging.Int("total_videos", list.TotalVideos),
		logging.Int("returned_videos", len(list.Videos)),
		logging.String(logging.FieldEventType, "playlist_expanded"),
	)
	return list, nil
}

func validatePlaylistURL(ref string) error {
	parsed, err := url.Parse(ref)
	if ref == "" || err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "fetch", "playlist", fmt.Sprintf("invalid playlist url %q", ref), nil)
	}
	return nil
}

func playlistError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "private"), strings.Contains(msg, "not found"):
		return services.Wrap(services.ErrNotFound, "fetch", "playlist", "playlist could not be found or is private", err)
	case strings.Contains(msg, "unsupported url"), strings.Contains(msg, "valid url"):
		return services.Wrap(services.ErrValidation, "fetch", "playlist", "not a valid playlist url", err)
	default:
		return acquisitionError("playlist", "yt-dlp playlist listing failed", err)
	}
}
