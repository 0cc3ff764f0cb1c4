package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the clip lifecycle.
type Paths struct {
	ActiveDir    string `toml:"active_dir"`
	CompletedDir string `toml:"completed_dir"`
	StagingDir   string `toml:"staging_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Fetch contains media acquisition settings.
type Fetch struct {
	YtDlpBinary            string  `toml:"ytdlp_binary"`
	FFmpegBinary           string  `toml:"ffmpeg_binary"`
	CookiesFile            string  `toml:"cookies_file"`
	Denoise                bool    `toml:"denoise"`
	KeepSourceAudio        bool    `toml:"keep_source_audio"`
	MetadataTimeoutSeconds int     `toml:"metadata_timeout_seconds"`
	DownloadTimeoutSeconds int     `toml:"download_timeout_seconds"`
	MinFreeGiB             float64 `toml:"min_free_gib"`
}

// Segmenter contains voice activity detection defaults. Request values
// override the aggressiveness and padding settings.
type Segmenter struct {
	VADAggressiveness int     `toml:"vad_aggressiveness"`
	StartPadding      float64 `toml:"start_padding"`
	EndPadding        float64 `toml:"end_padding"`
	MinClipSeconds    float64 `toml:"min_clip_seconds"`
	// MaxClipSeconds of 0 disables the upper bound.
	MaxClipSeconds float64 `toml:"max_clip_seconds"`
	FrameMillis    int     `toml:"frame_ms"`
}

// Transcription selects and configures the speech-to-text provider.
type Transcription struct {
	Provider            string `toml:"provider"`
	Language            string `toml:"language"`
	ClipTimeoutSeconds  int    `toml:"clip_timeout_seconds"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXCacheDir    string `toml:"whisperx_cache_dir"`
	OpenAIBaseURL       string `toml:"openai_base_url"`
	OpenAIAPIKey        string `toml:"openai_api_key"`
	OpenAIModel         string `toml:"openai_model"`
}

// Storage selects and configures the object storage provider.
type Storage struct {
	Provider             string `toml:"provider"`
	Bucket               string `toml:"bucket"`
	Prefix               string `toml:"prefix"`
	LocalDir             string `toml:"local_dir"`
	CredentialsFile      string `toml:"credentials_file"`
	UploadTimeoutSeconds int    `toml:"upload_timeout_seconds"`
	MaxAttempts          int    `toml:"max_attempts"`
}

// Catalog configures the relational clip catalog.
type Catalog struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// Workers bounds per-clip concurrency.
type Workers struct {
	Transcription int `toml:"transcription"`
	Upload        int `toml:"upload"`
}

// API configures the HTTP adapter.
type API struct {
	Bind                 string `toml:"bind"`
	ReadTimeoutSeconds   int    `toml:"read_timeout_seconds"`
	ShutdownGraceSeconds int    `toml:"shutdown_grace_seconds"`
	MaxRequestBodyKiB    int    `toml:"max_request_body_kib"`
	// Token enables bearer authentication on /api routes when set.
	Token string `toml:"token"`
}

// Notifications configures ntfy delivery. An empty topic disables it.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for voxclip.
//
// Configuration sections by subsystem:
//   - Paths: active, completed, staging, state, and log directories
//   - Fetch: yt-dlp/ffmpeg acquisition
//   - Segmenter: voice activity detection defaults
//   - Transcription: speech-to-text provider
//   - Storage: object storage provider and retry policy
//   - Catalog: relational catalog driver
//   - Workers: per-clip concurrency limits
//   - API: HTTP adapter
//   - Notifications: ntfy push messages
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Fetch         Fetch         `toml:"fetch"`
	Segmenter     Segmenter     `toml:"segmenter"`
	Transcription Transcription `toml:"transcription"`
	Storage       Storage       `toml:"storage"`
	Catalog       Catalog       `toml:"catalog"`
	Workers       Workers       `toml:"workers"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voxclip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every command relies on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ActiveDir, c.Paths.CompletedDir, c.Paths.StagingDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Provider == StorageLocal {
		if err := os.MkdirAll(c.Storage.LocalDir, 0o755); err != nil {
			return fmt.Errorf("create local bucket %q: %w", c.Storage.LocalDir, err)
		}
	}
	return nil
}

// LockDir returns the directory holding per-video lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// ClipTimeout returns the per-clip transcription deadline.
func (c *Config) ClipTimeout() time.Duration {
	return time.Duration(c.Transcription.ClipTimeoutSeconds) * time.Second
}

// UploadTimeout returns the per-attempt upload deadline.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Storage.UploadTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
