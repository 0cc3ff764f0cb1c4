package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voxclip/internal/catalog"
	"voxclip/internal/clipstore"
	"voxclip/internal/cloudsync"
	"voxclip/internal/config"
	"voxclip/internal/fetch"
	"voxclip/internal/logging"
	"voxclip/internal/notifications"
	"voxclip/internal/preflight"
	"voxclip/internal/segment"
	"voxclip/internal/services/gcs"
	"voxclip/internal/services/localbucket"
	"voxclip/internal/services/openaistt"
	"voxclip/internal/services/whisperx"
	"voxclip/internal/transcribe"
)

// Segmenter renders speech clips from a WAV file.
type Segmenter interface {
	Split(ctx context.Context, audioPath, outDir, videoID string, opts segment.Options) (segment.Result, error)
}

// Deps carries everything the pipeline needs. Fields are built once at
// start and shared by every command.
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *clipstore.Store
	Locker      *clipstore.Locker
	Fetcher     fetch.Downloader
	Segmenter   Segmenter
	Transcriber transcribe.Transcriber
	Uploader    cloudsync.Uploader
	Catalog     catalog.Recorder
	// Playlists expands playlist references; nil disables the lookup.
	Playlists fetch.PlaylistLister
	// Channels is the channel registry; nil disables channel commands.
	Channels catalog.ChannelRegistry
	// Notifier receives milestone events; nil drops them.
	Notifier notifications.Service
	// Preflight runs before acquisition; nil skips the checks.
	Preflight func(ctx context.Context) error
	// Sleep overrides upload retry waits.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func (d *Deps) validate() error {
	var missing []string
	if d.Config == nil {
		missing = append(missing, "config")
	}
	if d.Store == nil {
		missing = append(missing, "clip store")
	}
	if d.Locker == nil {
		missing = append(missing, "locker")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline deps: missing %v", missing)
	}
	return nil
}

// BuildDeps wires the providers selected in cfg. The returned closer
// releases the catalog and storage clients.
func BuildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Deps, func() error, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return Deps{}, nil, fmt.Errorf("ensure directories: %w", err)
	}
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	store, err := catalog.Open(ctx, cfg)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("open catalog: %w", err)
	}
	closers = append(closers, store.Close)

	uploader, closeUploader, err := buildUploader(ctx, cfg)
	if err != nil {
		_ = closeAll()
		return Deps{}, nil, err
	}
	if closeUploader != nil {
		closers = append(closers, closeUploader)
	}

	fetcher := fetch.New(cfg, logger)
	deps := Deps{
		Config:      cfg,
		Logger:      logger,
		Store:       clipstore.NewFromConfig(cfg, logger),
		Locker:      clipstore.NewLocker(cfg.LockDir()),
		Fetcher:     fetcher,
		Playlists:   fetcher,
		Segmenter:   segment.New(logger),
		Transcriber: buildTranscriber(cfg),
		Uploader:    uploader,
		Catalog:     store,
		Channels:    store,
		Notifier:    notifications.NewService(cfg),
		Preflight: func(ctx context.Context) error {
			return preflight.Err(preflight.RunAll(ctx, cfg))
		},
	}
	logging.NewComponentLogger(logger, "pipeline").Debug("pipeline dependencies ready",
		logging.String("transcription_provider", cfg.Transcription.Provider),
		logging.String("storage_provider", cfg.Storage.Provider),
		logging.String("catalog", store.Target()),
	)
	return deps, closeAll, nil
}

func buildTranscriber(cfg *config.Config) transcribe.Transcriber {
	switch cfg.Transcription.Provider {
	case config.TranscriptionWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			CacheDir:    cfg.Transcription.WhisperXCacheDir,
		}, cfg.Paths.StagingDir)
	case config.TranscriptionOpenAI:
		return openaistt.NewClient(openaistt.Config{
			APIKey:  cfg.Transcription.OpenAIAPIKey,
			BaseURL: cfg.Transcription.OpenAIBaseURL,
			Model:   cfg.Transcription.OpenAIModel,
		})
	default:
		return nil
	}
}

func buildUploader(ctx context.Context, cfg *config.Config) (cloudsync.Uploader, func() error, error) {
	switch cfg.Storage.Provider {
	case config.StorageGCS:
		uploader, err := gcs.New(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return uploader, uploader.Close, nil
	default:
		return localbucket.New(cfg.Storage.LocalDir), nil, nil
	}
}
