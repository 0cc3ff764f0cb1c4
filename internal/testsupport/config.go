package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voxclip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ActiveDir = filepath.Join(base, "clips")
	cfgVal.Paths.CompletedDir = filepath.Join(base, "clips", "completed")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Provider = config.StorageLocal
	cfgVal.Storage.LocalDir = filepath.Join(base, "bucket")
	cfgVal.Storage.MaxAttempts = 2
	cfgVal.Catalog.Driver = config.CatalogSQLite
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.db")
	cfgVal.Transcription.Provider = config.TranscriptionNone
	cfgVal.Transcription.WhisperXCacheDir = filepath.Join(base, "whisperx")
	cfgVal.Fetch.MinFreeGiB = 0
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCompletedDir overrides the completed root, e.g. to place it on another
// filesystem.
func WithCompletedDir(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CompletedDir = path
	}
}

// WithWorkers sets both per-clip worker limits.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Transcription = n
		b.cfg.Workers.Upload = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default voxclip external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Fetch.YtDlpBinary, b.cfg.Fetch.FFmpegBinary}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
