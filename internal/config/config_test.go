package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"voxclip/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "GCS_BUCKET_NAME", "VOXCLIP_DATABASE_URL", "GOOGLE_APPLICATION_CREDENTIALS", "VOXCLIP_API_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantActive := filepath.Join(tempHome, ".local", "share", "voxclip", "clips")
	if cfg.Paths.ActiveDir != wantActive {
		t.Fatalf("unexpected active dir: got %q want %q", cfg.Paths.ActiveDir, wantActive)
	}
	if cfg.Paths.CompletedDir != filepath.Join(wantActive, "completed") {
		t.Fatalf("expected completed dir under active dir, got %q", cfg.Paths.CompletedDir)
	}
	if cfg.Segmenter.VADAggressiveness != 2 {
		t.Fatalf("expected default aggressiveness 2, got %d", cfg.Segmenter.VADAggressiveness)
	}
	if cfg.Segmenter.StartPadding != 1.0 || cfg.Segmenter.EndPadding != 0.5 {
		t.Fatalf("unexpected default padding: %v/%v", cfg.Segmenter.StartPadding, cfg.Segmenter.EndPadding)
	}
	if cfg.Segmenter.MinClipSeconds != 4.0 {
		t.Fatalf("expected min clip 4s, got %v", cfg.Segmenter.MinClipSeconds)
	}
	if cfg.Segmenter.MaxClipSeconds != 0 {
		t.Fatalf("expected max clip disabled by default, got %v", cfg.Segmenter.MaxClipSeconds)
	}
	if cfg.Transcription.Language != "si" {
		t.Fatalf("expected default language si, got %q", cfg.Transcription.Language)
	}
	if cfg.Storage.Provider != config.StorageLocal {
		t.Fatalf("expected local storage by default, got %q", cfg.Storage.Provider)
	}
	if cfg.Catalog.Driver != config.CatalogSQLite {
		t.Fatalf("expected sqlite catalog by default, got %q", cfg.Catalog.Driver)
	}
	if cfg.LockDir() != filepath.Join(tempHome, ".local", "state", "voxclip", "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.LockDir())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
active_dir = "~/voxclip/active"
completed_dir = "~/archive"

[segmenter]
vad_aggressiveness = 3
start_padding = 0.25
max_clip_seconds = 12.0

[storage]
provider = "gcs"
bucket = "clips-bucket"
prefix = "/datasets/si/"

[workers]
upload = 3

[logging]
format = "JSON"
retention_days = -5
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.ActiveDir != filepath.Join(tempHome, "voxclip", "active") {
		t.Fatalf("unexpected active dir: %q", cfg.Paths.ActiveDir)
	}
	if cfg.Paths.CompletedDir != filepath.Join(tempHome, "archive") {
		t.Fatalf("unexpected completed dir: %q", cfg.Paths.CompletedDir)
	}
	if cfg.Segmenter.VADAggressiveness != 3 || cfg.Segmenter.StartPadding != 0.25 {
		t.Fatalf("unexpected segmenter: %+v", cfg.Segmenter)
	}
	if cfg.Segmenter.EndPadding != 0.5 {
		t.Fatalf("expected end padding default to survive partial section, got %v", cfg.Segmenter.EndPadding)
	}
	if cfg.Storage.Prefix != "datasets/si" {
		t.Fatalf("expected trimmed prefix, got %q", cfg.Storage.Prefix)
	}
	if cfg.Workers.Upload != 3 || cfg.Workers.Transcription != 4 {
		t.Fatalf("unexpected workers: %+v", cfg.Workers)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.RetentionDays != 0 {
		t.Fatalf("expected negative retention clamped to 0, got %d", cfg.Logging.RetentionDays)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GCS_BUCKET_NAME", "env-bucket")
	t.Setenv("VOXCLIP_DATABASE_URL", "postgres://voxclip@localhost/voxclip")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VOXCLIP_API_TOKEN", " tok ")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[transcription]
provider = "openai"

[storage]
provider = "gcs"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Bucket != "env-bucket" {
		t.Fatalf("expected bucket from env, got %q", cfg.Storage.Bucket)
	}
	if cfg.Catalog.DSN != "postgres://voxclip@localhost/voxclip" {
		t.Fatalf("expected dsn from env, got %q", cfg.Catalog.DSN)
	}
	if cfg.Catalog.Driver != config.CatalogSQLite {
		t.Fatalf("expected explicit sqlite default driver, got %q", cfg.Catalog.Driver)
	}
	if cfg.Transcription.OpenAIAPIKey != "sk-test" {
		t.Fatalf("expected api key from env, got %q", cfg.Transcription.OpenAIAPIKey)
	}
	if cfg.API.Token != "tok" {
		t.Fatalf("expected trimmed api token from env, got %q", cfg.API.Token)
	}
}

func TestCatalogDriverInferredFromDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[catalog]
driver = ""
dsn = "postgresql://voxclip@db/voxclip"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.Driver != config.CatalogPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Catalog.Driver)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "aggressiveness too high",
			mutate:  func(c *config.Config) { c.Segmenter.VADAggressiveness = 4 },
			wantErr: "segmenter.vad_aggressiveness",
		},
		{
			name:    "negative start padding",
			mutate:  func(c *config.Config) { c.Segmenter.StartPadding = -0.1 },
			wantErr: "segmenter.start_padding",
		},
		{
			name:    "max below min",
			mutate:  func(c *config.Config) { c.Segmenter.MaxClipSeconds = 2 },
			wantErr: "segmenter.max_clip_seconds",
		},
		{
			name:    "unsupported frame size",
			mutate:  func(c *config.Config) { c.Segmenter.FrameMillis = 25 },
			wantErr: "segmenter.frame_ms",
		},
		{
			name:    "ntfy topic without scheme",
			mutate:  func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/voxclip" },
			wantErr: "notifications.ntfy_topic",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *config.Config) { c.Storage.Provider = config.StorageGCS; c.Storage.Bucket = "" },
			wantErr: "storage.bucket",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *config.Config) { c.Catalog.Driver = config.CatalogPostgres; c.Catalog.DSN = "" },
			wantErr: "catalog.dsn",
		},
		{
			name: "openai without key",
			mutate: func(c *config.Config) {
				c.Transcription.Provider = config.TranscriptionOpenAI
				c.Transcription.OpenAIAPIKey = ""
			},
			wantErr: "transcription.openai_api_key",
		},
		{
			name:    "malformed language",
			mutate:  func(c *config.Config) { c.Transcription.Language = "not a tag" },
			wantErr: "transcription.language",
		},
		{
			name: "completed equals active",
			mutate: func(c *config.Config) {
				c.Paths.ActiveDir = "/tmp/voxclip"
				c.Paths.CompletedDir = "/tmp/voxclip/"
			},
			wantErr: "paths.completed_dir",
		},
		{
			name:    "unknown storage provider",
			mutate:  func(c *config.Config) { c.Storage.Provider = "s3" },
			wantErr: "storage.provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.ActiveDir = "/tmp/voxclip"
			cfg.Paths.CompletedDir = "/tmp/voxclip/completed"
			cfg.Storage.LocalDir = "/tmp/voxclip-bucket"
			cfg.Catalog.Path = "/tmp/voxclip.db"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[segmenter]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
