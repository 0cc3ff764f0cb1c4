package config

const (
	defaultConfigPath              = "~/.config/voxclip/config.toml"
	defaultActiveDir               = "~/.local/share/voxclip/clips"
	defaultStagingDir              = "~/.local/share/voxclip/staging"
	defaultStateDir                = "~/.local/state/voxclip"
	defaultLogDir                  = "~/.local/share/voxclip/logs"
	defaultLocalBucketDir          = "~/.local/share/voxclip/bucket"
	defaultWhisperXCacheDir        = "~/.cache/voxclip/whisperx"
	defaultCatalogPath             = "~/.local/share/voxclip/catalog.db"
	defaultLogRetentionDays        = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultYtDlpBinary             = "yt-dlp"
	defaultFFmpegBinary            = "ffmpeg"
	defaultMetadataTimeoutSeconds  = 60
	defaultDownloadTimeoutSeconds  = 1800
	defaultMinFreeGiB              = 1.0
	defaultVADAggressiveness       = 2
	defaultStartPadding            = 1.0
	defaultEndPadding              = 0.5
	defaultMinClipSeconds          = 4.0
	defaultFrameMillis             = 30
	defaultTranscriptionLanguage   = "si"
	defaultClipTimeoutSeconds      = 120
	defaultWhisperXModel           = "large-v3"
	defaultOpenAIBaseURL           = "https://api.openai.com/v1"
	defaultOpenAIModel             = "whisper-1"
	defaultUploadTimeoutSeconds    = 60
	defaultUploadMaxAttempts       = 4
	defaultTranscriptionWorkers    = 4
	defaultUploadWorkers           = 8
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultAPIReadTimeoutSeconds   = 30
	defaultAPIShutdownGraceSeconds = 10
	defaultAPIMaxRequestBodyKiB    = 64
	defaultNtfyTimeoutSeconds      = 10
	completedSubdir                = "completed"
)

// Provider names.
const (
	TranscriptionWhisperX = "whisperx"
	TranscriptionOpenAI   = "openai"
	TranscriptionNone     = "none"

	StorageLocal = "local"
	StorageGCS   = "gcs"

	CatalogSQLite   = "sqlite"
	CatalogPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ActiveDir:  defaultActiveDir,
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Fetch: Fetch{
			YtDlpBinary:            defaultYtDlpBinary,
			FFmpegBinary:           defaultFFmpegBinary,
			MetadataTimeoutSeconds: defaultMetadataTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
			MinFreeGiB:             defaultMinFreeGiB,
		},
		Segmenter: Segmenter{
			VADAggressiveness: defaultVADAggressiveness,
			StartPadding:      defaultStartPadding,
			EndPadding:        defaultEndPadding,
			MinClipSeconds:    defaultMinClipSeconds,
			FrameMillis:       defaultFrameMillis,
		},
		Transcription: Transcription{
			Provider:           TranscriptionWhisperX,
			Language:           defaultTranscriptionLanguage,
			ClipTimeoutSeconds: defaultClipTimeoutSeconds,
			WhisperXModel:      defaultWhisperXModel,
			WhisperXCacheDir:   defaultWhisperXCacheDir,
			OpenAIBaseURL:      defaultOpenAIBaseURL,
			OpenAIModel:        defaultOpenAIModel,
		},
		Storage: Storage{
			Provider:             StorageLocal,
			LocalDir:             defaultLocalBucketDir,
			UploadTimeoutSeconds: defaultUploadTimeoutSeconds,
			MaxAttempts:          defaultUploadMaxAttempts,
		},
		Catalog: Catalog{
			Driver: CatalogSQLite,
			Path:   defaultCatalogPath,
		},
		Workers: Workers{
			Transcription: defaultTranscriptionWorkers,
			Upload:        defaultUploadWorkers,
		},
		API: API{
			Bind:                 defaultAPIBind,
			ReadTimeoutSeconds:   defaultAPIReadTimeoutSeconds,
			ShutdownGraceSeconds: defaultAPIShutdownGraceSeconds,
			MaxRequestBodyKiB:    defaultAPIMaxRequestBodyKiB,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
