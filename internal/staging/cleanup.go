package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"voxclip/internal/logging"
)

// DefaultMaxAge is how long a staging directory may sit idle before a sweep
// removes it.
const DefaultMaxAge = 24 * time.Hour

// Locker reports whether a video's command lock is free. Sweeps skip
// directories whose video is busy.
type Locker interface {
	TryLock(videoID string) (func(), bool, error)
}

// Result contains the outcome of a sweep.
type Result struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one staging directory.
type DirInfo struct {
	VideoID string    `json:"video_id"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// CleanStale removes staging directories idle for longer than maxAge.
// Directories whose video lock is held are left alone.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, locker Locker, logger *slog.Logger) Result {
	result := Result{}
	if logger == nil {
		logger = logging.NewNop()
	}

	dirs, err := ListDirectories(stagingDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		if locker != nil {
			unlock, ok, err := locker.TryLock(dir.VideoID)
			if err != nil || !ok {
				result.Skipped = append(result.Skipped, dir.Path)
				continue
			}
			err = os.RemoveAll(dir.Path)
			unlock()
			result = record(result, logger, dir, err)
			continue
		}
		result = record(result, logger, dir, os.RemoveAll(dir.Path))
	}
	return result
}

func record(result Result, logger *slog.Logger, dir DirInfo, err error) Result {
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
		logging.WarnWithContext(logger, "failed to remove stale staging directory", "staging_cleanup_failed",
			logging.String("path", dir.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return result
	}
	result.Removed = append(result.Removed, dir.Path)
	logger.Info("removed stale staging directory",
		logging.String(logging.FieldVideoID, dir.VideoID),
		logging.String("path", dir.Path),
		logging.Duration("age", time.Since(dir.ModTime).Round(time.Second)),
		logging.String(logging.FieldEventType, "staging_cleanup"),
	)
	return result
}

// ListDirectories returns the staging directories sorted by video id. A
// missing or blank root yields no entries. ModTime is the newest
// modification inside the directory.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		size, newest, err := walkDir(path)
		if err != nil {
			continue
		}
		dirs = append(dirs, DirInfo{VideoID: entry.Name(), Path: path, ModTime: newest, Size: size})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].VideoID < dirs[j].VideoID })
	return dirs, nil
}

func walkDir(root string) (int64, time.Time, error) {
	var size int64
	var newest time.Time
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if !d.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, newest, err
}
