package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if c.Paths.ActiveDir == "" {
		return errors.New("paths.active_dir must be set")
	}
	if c.Paths.CompletedDir == "" {
		return errors.New("paths.completed_dir must be set")
	}
	if filepath.Clean(c.Paths.ActiveDir) == filepath.Clean(c.Paths.CompletedDir) {
		return errors.New("paths.completed_dir must differ from paths.active_dir")
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	s := c.Segmenter
	if s.VADAggressiveness < 0 || s.VADAggressiveness > 3 {
		return fmt.Errorf("segmenter.vad_aggressiveness must be between 0 and 3, got %d", s.VADAggressiveness)
	}
	if s.StartPadding < 0 {
		return errors.New("segmenter.start_padding must be >= 0")
	}
	if s.EndPadding < 0 {
		return errors.New("segmenter.end_padding must be >= 0")
	}
	if s.MaxClipSeconds > 0 && s.MaxClipSeconds < s.MinClipSeconds {
		return errors.New("segmenter.max_clip_seconds must be 0 or >= segmenter.min_clip_seconds")
	}
	switch s.FrameMillis {
	case 10, 20, 30:
	default:
		return fmt.Errorf("segmenter.frame_ms must be 10, 20, or 30, got %d", s.FrameMillis)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case TranscriptionWhisperX, TranscriptionNone:
	case TranscriptionOpenAI:
		if c.Transcription.OpenAIAPIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("transcription.openai_api_key is required for the openai provider. Set OPENAI_API_KEY env var or edit %s", defaultPath)
		}
	default:
		return fmt.Errorf("transcription.provider: unsupported value %q", c.Transcription.Provider)
	}
	if _, err := language.Parse(c.Transcription.Language); err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Provider {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set for the local provider")
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the gcs provider. Set GCS_BUCKET_NAME env var or edit the config file")
		}
		if strings.ContainsAny(c.Storage.Bucket, "/ ") {
			return fmt.Errorf("storage.bucket: invalid bucket name %q", c.Storage.Bucket)
		}
	default:
		return fmt.Errorf("storage.provider: unsupported value %q", c.Storage.Provider)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Driver {
	case CatalogSQLite:
		if c.Catalog.Path == "" {
			return errors.New("catalog.path must be set for the sqlite driver")
		}
	case CatalogPostgres:
		if c.Catalog.DSN == "" {
			return errors.New("catalog.dsn is required for the postgres driver. Set VOXCLIP_DATABASE_URL env var or edit the config file")
		}
	default:
		return fmt.Errorf("catalog.driver: unsupported value %q", c.Catalog.Driver)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
