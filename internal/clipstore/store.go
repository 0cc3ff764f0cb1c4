package clipstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"voxclip/internal/config"
	"voxclip/internal/fileutil"
	"voxclip/internal/logging"
	"voxclip/internal/services"
)

const (
	VideoMetadataFile = "video_metadata.json"
	ClipMetadataFile  = "clip_metadata.json"
)

// Location reports where a video currently lives.
type Location struct {
	Status Status
	Dir    string
}

// Store manages the active and completed roots.
type Store struct {
	activeRoot    string
	completedRoot string
	logger        *slog.Logger
}

// New constructs a Store over the given roots.
func New(activeRoot, completedRoot string, logger *slog.Logger) *Store {
	return &Store{
		activeRoot:    activeRoot,
		completedRoot: completedRoot,
		logger:        logging.NewComponentLogger(logger, "clipstore"),
	}
}

// NewFromConfig constructs a Store over the configured roots.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Store {
	return New(cfg.Paths.ActiveDir, cfg.Paths.CompletedDir, logger)
}

// ActiveDir returns the active directory for videoID whether or not it exists.
func (s *Store) ActiveDir(videoID string) string {
	return filepath.Join(s.activeRoot, videoID)
}

// CompletedDir returns the completed directory for videoID whether or not it exists.
func (s *Store) CompletedDir(videoID string) string {
	return filepath.Join(s.completedRoot, videoID)
}

// Locate finds the directory holding videoID. A missing video returns
// ErrNotFound. A video present under both roots is the residue of a move
// whose source removal failed: when the completed copy records the complete
// state the active copy is removed and the completed location returned,
// otherwise ErrConflict.
func (s *Store) Locate(videoID string) (Location, error) {
	if err := validateVideoID(videoID); err != nil {
		return Location{}, err
	}
	active, err := isDir(s.ActiveDir(videoID))
	if err != nil {
		return Location{}, err
	}
	completed, err := isDir(s.CompletedDir(videoID))
	if err != nil {
		return Location{}, err
	}
	switch {
	case active && completed:
		return s.finishMove(videoID)
	case active:
		return Location{Status: StatusActive, Dir: s.ActiveDir(videoID)}, nil
	case completed:
		return Location{Status: StatusCompleted, Dir: s.CompletedDir(videoID)}, nil
	default:
		return Location{}, services.Wrap(services.ErrNotFound, "clipstore", "locate", fmt.Sprintf("video %s has no clip directory", videoID), nil)
	}
}

func (s *Store) finishMove(videoID string) (Location, error) {
	conflict := fmt.Sprintf("video %s exists under both active and completed roots", videoID)
	var video Video
	if err := readJSON(filepath.Join(s.CompletedDir(videoID), VideoMetadataFile), &video); err != nil || video.State != StateComplete {
		return Location{}, services.Wrap(services.ErrConflict, "clipstore", "locate", conflict, nil)
	}
	if err := os.RemoveAll(s.ActiveDir(videoID)); err != nil {
		return Location{}, services.Wrap(services.ErrConflict, "clipstore", "locate", conflict+"; leftover active copy could not be removed", err)
	}
	logging.WarnWithContext(s.logger, "removed active copy left by an interrupted move", "move_recovered",
		logging.String(logging.FieldVideoID, videoID),
		logging.String(logging.FieldImpact, "video is served from the completed root"),
	)
	return Location{Status: StatusCompleted, Dir: s.CompletedDir(videoID)}, nil
}

// PrepareActive creates the active directory for videoID and removes clip
// audio and metadata left by an earlier split.
func (s *Store) PrepareActive(videoID string) (string, error) {
	if err := validateVideoID(videoID); err != nil {
		return "", err
	}
	dir := s.ActiveDir(videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create active dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read active dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if name == VideoMetadataFile || name == ClipMetadataFile || (strings.HasPrefix(name, videoID+"-") && strings.HasSuffix(name, ".wav")) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return "", fmt.Errorf("remove stale %s: %w", name, err)
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cleared previous split",
			logging.String(logging.FieldVideoID, videoID),
			logging.Int("removed_files", removed),
			logging.String(logging.FieldEventType, "active_dir_reset"),
		)
	}
	return dir, nil
}

// RemoveActive deletes the active directory for videoID. Used to roll back
// a split that failed before any clip was recorded.
func (s *Store) RemoveActive(videoID string) error {
	if err := validateVideoID(videoID); err != nil {
		return err
	}
	return os.RemoveAll(s.ActiveDir(videoID))
}

// WriteVideo atomically replaces video_metadata.json in the video's current directory.
func (s *Store) WriteVideo(videoID string, video Video) error {
	loc, err := s.Locate(videoID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(loc.Dir, VideoMetadataFile), video)
}

// WriteClips atomically replaces clip_metadata.json in the video's current
// directory. Clips are stored in index order.
func (s *Store) WriteClips(videoID string, clips []Clip) error {
	loc, err := s.Locate(videoID)
	if err != nil {
		return err
	}
	ordered := slices.Clone(clips)
	slices.SortFunc(ordered, func(a, b Clip) int { return a.Index - b.Index })
	if ordered == nil {
		ordered = []Clip{}
	}
	return writeJSON(filepath.Join(loc.Dir, ClipMetadataFile), ordered)
}

// ReadVideo loads video metadata from wherever the video lives.
func (s *Store) ReadVideo(videoID string) (Video, Location, error) {
	loc, err := s.Locate(videoID)
	if err != nil {
		return Video{}, Location{}, err
	}
	var video Video
	if err := readJSON(filepath.Join(loc.Dir, VideoMetadataFile), &video); err != nil {
		return Video{}, loc, err
	}
	return video, loc, nil
}

// ReadClips loads clip metadata from wherever the video lives. A directory
// without clip metadata yields an empty list.
func (s *Store) ReadClips(videoID string) ([]Clip, Location, error) {
	loc, err := s.Locate(videoID)
	if err != nil {
		return nil, Location{}, err
	}
	var clips []Clip
	if err := readJSON(filepath.Join(loc.Dir, ClipMetadataFile), &clips); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Clip{}, loc, nil
		}
		return nil, loc, err
	}
	return clips, loc, nil
}

// ClipPath resolves a clip file for videoID. Names containing path
// separators or not naming an existing .wav file return ErrNotFound.
func (s *Store) ClipPath(videoID, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." || !strings.HasSuffix(name, ".wav") {
		return "", services.Wrap(services.ErrNotFound, "clipstore", "resolve clip", fmt.Sprintf("invalid clip name %q", name), nil)
	}
	loc, err := s.Locate(videoID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(loc.Dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrNotFound, "clipstore", "resolve clip", fmt.Sprintf("clip %s not found for video %s", name, videoID), nil)
	}
	return path, nil
}

// Complete moves videoID from the active root to the completed root. A video
// that is already completed is left alone and moved reports false.
func (s *Store) Complete(videoID string) (moved bool, err error) {
	loc, err := s.Locate(videoID)
	if err != nil {
		return false, err
	}
	if loc.Status == StatusCompleted {
		return false, nil
	}
	crossDevice, err := fileutil.MoveDir(loc.Dir, s.CompletedDir(videoID))
	if err != nil {
		return false, fmt.Errorf("move to completed: %w", err)
	}
	s.logger.Info("video moved to completed",
		logging.String(logging.FieldVideoID, videoID),
		logging.Bool("cross_device", crossDevice),
		logging.String("completed_dir", s.CompletedDir(videoID)),
		logging.String(logging.FieldEventType, "video_completed"),
	)
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "clipstore", "read metadata", filepath.Base(path)+" missing", err)
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func validateVideoID(videoID string) error {
	if videoID == "" || videoID != filepath.Base(videoID) || strings.ContainsAny(videoID, `/\`) || strings.HasPrefix(videoID, ".") {
		return services.Wrap(services.ErrValidation, "clipstore", "validate video id", fmt.Sprintf("invalid video id %q", videoID), nil)
	}
	return nil
}
