package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxclip/internal/catalog"
	"voxclip/internal/clipstore"
	"voxclip/internal/config"
	"voxclip/internal/fetch"
	"voxclip/internal/pipeline"
	"voxclip/internal/segment"
	"voxclip/internal/services/localbucket"
	"voxclip/internal/testsupport"
	"voxclip/internal/transcribe"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	fetcher    *testsupport.SpeechFetcher
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"OPENAI_API_KEY", "GCS_BUCKET_NAME", "VOXCLIP_DATABASE_URL", "VOXCLIP_API_TOKEN"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "voxclip.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		fetcher:    &testsupport.SpeechFetcher{T: t},
	}
}

// build wires the pipeline with the fake fetcher and a transcriber that
// echoes the clip name, keeping the real segmenter, bucket, and catalog.
func (e *cliTestEnv) build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Deps, func() error, error) {
	store, err := catalog.OpenSQLite(ctx, cfg.Catalog.Path)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}
	deps := pipeline.Deps{
		Config:    cfg,
		Logger:    logger,
		Store:     clipstore.NewFromConfig(cfg, logger),
		Locker:    clipstore.NewLocker(cfg.LockDir()),
		Fetcher:   e.fetcher,
		Segmenter: segment.New(logger),
		Transcriber: transcribe.TranscriberFunc(func(_ context.Context, audioPath, _ string) (string, error) {
			return "words in " + filepath.Base(audioPath), nil
		}),
		Uploader:  localbucket.New(cfg.Storage.LocalDir),
		Catalog:   store,
		Channels:  store,
		Playlists: staticPlaylist{},
	}
	return deps, store.Close, nil
}

// staticPlaylist answers every lookup with two videos, honouring limit.
type staticPlaylist struct{}

func (staticPlaylist) Playlist(_ context.Context, _ string, limit int) (fetch.Playlist, error) {
	videos := []fetch.PlaylistVideo{
		{VideoID: "aaaaaaaaaaa", URL: fetch.CanonicalURL("aaaaaaaaaaa"), Title: "Opening talk", Duration: 95},
		{VideoID: "bbbbbbbbbbb", URL: fetch.CanonicalURL("bbbbbbbbbbb"), Title: "Closing talk", Duration: 120},
	}
	if limit > 0 && limit < len(videos) {
		videos = videos[:limit]
	}
	return fetch.Playlist{PlaylistID: "PL1", Title: "Conference", TotalVideos: 2, Videos: videos}, nil
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.build)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
