package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dailyLayout = "20060102"

// CleanupOldLogs removes daily log files in dir older than retentionDays and
// returns how many were removed. Age comes from the date in the file name,
// falling back to the modification time. Paths in keep are never removed.
// A retentionDays of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, dir string, keep ...string) int {
	return cleanupOldLogs(logger, time.Now(), retentionDays, dir, keep...)
}

func cleanupOldLogs(logger *slog.Logger, now time.Time, retentionDays int, dir string, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	kept := make(map[string]bool, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			kept[abs] = true
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && kept[abs] {
			continue
		}
		stamp, ok := logDate(path)
		if !ok {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			stamp = info.ModTime()
		}
		if !stamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check paths.log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

// logDate parses the day from a voxclip-YYYYMMDD.log name.
func logDate(path string) (time.Time, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "voxclip-"), ".log")
	day, err := time.ParseInLocation(dailyLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
