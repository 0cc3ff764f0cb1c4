package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	c.normalizeSegmenter()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ActiveDir) == "" {
		c.Paths.ActiveDir = defaultActiveDir
	}
	if c.Paths.ActiveDir, err = expandPath(c.Paths.ActiveDir); err != nil {
		return fmt.Errorf("paths.active_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CompletedDir) == "" {
		c.Paths.CompletedDir = filepath.Join(c.Paths.ActiveDir, completedSubdir)
	}
	if c.Paths.CompletedDir, err = expandPath(c.Paths.CompletedDir); err != nil {
		return fmt.Errorf("paths.completed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() error {
	c.Fetch.YtDlpBinary = strings.TrimSpace(c.Fetch.YtDlpBinary)
	if c.Fetch.YtDlpBinary == "" {
		c.Fetch.YtDlpBinary = defaultYtDlpBinary
	}
	c.Fetch.FFmpegBinary = strings.TrimSpace(c.Fetch.FFmpegBinary)
	if c.Fetch.FFmpegBinary == "" {
		c.Fetch.FFmpegBinary = defaultFFmpegBinary
	}
	var err error
	if c.Fetch.CookiesFile, err = expandPath(strings.TrimSpace(c.Fetch.CookiesFile)); err != nil {
		return fmt.Errorf("fetch.cookies_file: %w", err)
	}
	if c.Fetch.MetadataTimeoutSeconds <= 0 {
		c.Fetch.MetadataTimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	if c.Fetch.DownloadTimeoutSeconds <= 0 {
		c.Fetch.DownloadTimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	if c.Fetch.MinFreeGiB < 0 {
		c.Fetch.MinFreeGiB = 0
	}
	return nil
}

func (c *Config) normalizeSegmenter() {
	if c.Segmenter.MinClipSeconds <= 0 {
		c.Segmenter.MinClipSeconds = defaultMinClipSeconds
	}
	if c.Segmenter.MaxClipSeconds < 0 {
		c.Segmenter.MaxClipSeconds = 0
	}
	if c.Segmenter.FrameMillis == 0 {
		c.Segmenter.FrameMillis = defaultFrameMillis
	}
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = TranscriptionWhisperX
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultTranscriptionLanguage
	}
	if c.Transcription.ClipTimeoutSeconds <= 0 {
		c.Transcription.ClipTimeoutSeconds = defaultClipTimeoutSeconds
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	if strings.TrimSpace(c.Transcription.WhisperXCacheDir) == "" {
		c.Transcription.WhisperXCacheDir = defaultWhisperXCacheDir
	}
	var err error
	if c.Transcription.WhisperXCacheDir, err = expandPath(c.Transcription.WhisperXCacheDir); err != nil {
		return fmt.Errorf("transcription.whisperx_cache_dir: %w", err)
	}
	c.Transcription.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.OpenAIBaseURL), "/")
	if c.Transcription.OpenAIBaseURL == "" {
		c.Transcription.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	c.Transcription.OpenAIModel = strings.TrimSpace(c.Transcription.OpenAIModel)
	if c.Transcription.OpenAIModel == "" {
		c.Transcription.OpenAIModel = defaultOpenAIModel
	}
	c.Transcription.OpenAIAPIKey = strings.TrimSpace(c.Transcription.OpenAIAPIKey)
	if c.Transcription.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Provider = strings.ToLower(strings.TrimSpace(c.Storage.Provider))
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageLocal
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" {
		if value, ok := os.LookupEnv("GCS_BUCKET_NAME"); ok {
			c.Storage.Bucket = strings.TrimSpace(value)
		}
	}
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultLocalBucketDir
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.CredentialsFile = strings.TrimSpace(c.Storage.CredentialsFile)
	if c.Storage.CredentialsFile == "" {
		if value, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok {
			c.Storage.CredentialsFile = strings.TrimSpace(value)
		}
	}
	if c.Storage.CredentialsFile, err = expandPath(c.Storage.CredentialsFile); err != nil {
		return fmt.Errorf("storage.credentials_file: %w", err)
	}
	if c.Storage.UploadTimeoutSeconds <= 0 {
		c.Storage.UploadTimeoutSeconds = defaultUploadTimeoutSeconds
	}
	if c.Storage.MaxAttempts <= 0 {
		c.Storage.MaxAttempts = defaultUploadMaxAttempts
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.Driver = strings.ToLower(strings.TrimSpace(c.Catalog.Driver))
	c.Catalog.DSN = strings.TrimSpace(c.Catalog.DSN)
	if c.Catalog.DSN == "" {
		if value, ok := os.LookupEnv("VOXCLIP_DATABASE_URL"); ok {
			c.Catalog.DSN = strings.TrimSpace(value)
		}
	}
	switch c.Catalog.Driver {
	case "":
		c.Catalog.Driver = CatalogSQLite
		if strings.HasPrefix(c.Catalog.DSN, "postgres://") || strings.HasPrefix(c.Catalog.DSN, "postgresql://") {
			c.Catalog.Driver = CatalogPostgres
		}
	case "postgresql", "pgx":
		c.Catalog.Driver = CatalogPostgres
	case "sqlite3":
		c.Catalog.Driver = CatalogSQLite
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = defaultCatalogPath
	}
	var err error
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Transcription <= 0 {
		c.Workers.Transcription = defaultTranscriptionWorkers
	}
	if c.Workers.Upload <= 0 {
		c.Workers.Upload = defaultUploadWorkers
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.ReadTimeoutSeconds <= 0 {
		c.API.ReadTimeoutSeconds = defaultAPIReadTimeoutSeconds
	}
	if c.API.ShutdownGraceSeconds <= 0 {
		c.API.ShutdownGraceSeconds = defaultAPIShutdownGraceSeconds
	}
	if c.API.MaxRequestBodyKiB <= 0 {
		c.API.MaxRequestBodyKiB = defaultAPIMaxRequestBodyKiB
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("VOXCLIP_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
