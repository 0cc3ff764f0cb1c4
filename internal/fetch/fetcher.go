package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"voxclip/internal/audio/wav"
	"voxclip/internal/clipstore"
	"voxclip/internal/config"
	"voxclip/internal/logging"
	"voxclip/internal/services"
)

// TargetSampleRate is the rate every fetched WAV is converted to.
const TargetSampleRate = 16000

// CommandRunner executes an external tool and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Downloader produces raw audio and metadata for a video reference.
type Downloader interface {
	Fetch(ctx context.Context, ref, workDir string) (Result, error)
}

// Result describes a fetched video.
type Result struct {
	Video     clipstore.Video
	AudioPath string
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithCommandRunner replaces the exec-based runner.
func WithCommandRunner(runner CommandRunner) Option {
	return func(f *Fetcher) {
		if runner != nil {
			f.run = runner
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// Fetcher downloads audio with yt-dlp and converts it with ffmpeg.
type Fetcher struct {
	cfg    config.Fetch
	logger *slog.Logger
	run    CommandRunner
	now    func() time.Time
}

// New constructs a Fetcher from the fetch section of cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg.Fetch,
		logger: logging.NewComponentLogger(logger, "fetch"),
		run:    defaultCommandRunner,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type videoInfo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Uploader     string  `json:"uploader"`
	UploadDate   string  `json:"upload_date"`
	Thumbnail    string  `json:"thumbnail"`
	Duration     float64 `json:"duration"`
	IsLive       bool    `json:"is_live"`
	WasLive      bool    `json:"was_live"`
	LiveStatus   string  `json:"live_status"`
	AgeLimit     int     `json:"age_limit"`
	Availability string  `json:"availability"`
}

// Fetch resolves ref, downloads its best audio stream into workDir, and
// converts it to 16 kHz mono PCM WAV.
func (f *Fetcher) Fetch(ctx context.Context, ref, workDir string) (result Result, err error) {
	videoID, err := ExtractVideoID(ref)
	if err != nil {
		return Result{}, err
	}
	logger := f.logger.With(logging.String(logging.FieldVideoID, videoID))
	sourceURL := CanonicalURL(videoID)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, acquisitionError("prepare work dir", "create staging directory", err)
	}
	defer func() {
		if err != nil {
			removePartial(workDir, videoID)
		}
	}()

	info, err := f.fetchMetadata(ctx, sourceURL)
	if err != nil {
		return Result{}, err
	}
	if err := f.checkEligible(info); err != nil {
		return Result{}, err
	}
	logger.Info("video metadata fetched",
		logging.String("title", info.Title),
		logging.Float64("duration_seconds", info.Duration),
		logging.String(logging.FieldEventType, "fetch_metadata"),
	)

	source, err := f.download(ctx, sourceURL, workDir, videoID)
	if err != nil {
		return Result{}, err
	}

	audioPath := filepath.Join(workDir, videoID+".wav")
	if err := f.convert(ctx, source, audioPath); err != nil {
		return Result{}, err
	}
	if err := os.Remove(source); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("downloaded source not removed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "fetch_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the file from the staging directory manually"),
		)
	}

	reader, err := wav.Open(audioPath)
	if err != nil {
		return Result{}, acquisitionError("verify audio", "converted audio is not readable", err)
	}
	seconds := reader.Seconds()
	rate := reader.Format.SampleRate
	_ = reader.Close()

	duration := info.Duration
	if duration <= 0 {
		duration = seconds
	}
	now := f.now().UTC()
	video := clipstore.Video{
		VideoID:         videoID,
		SourceURL:       sourceURL,
		Title:           info.Title,
		Description:     info.Description,
		Uploader:        info.Uploader,
		UploadDate:      info.UploadDate,
		Thumbnail:       info.Thumbnail,
		DurationSeconds: duration,
		RawAudioPath:    audioPath,
		SampleRate:      rate,
		Status:          clipstore.StatusActive,
		State:           clipstore.StateProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	logger.Info("audio acquired",
		logging.String("audio_path", audioPath),
		logging.Float64("audio_seconds", seconds),
		logging.Int("sample_rate", rate),
		logging.String(logging.FieldEventType, "fetch_completed"),
	)
	return Result{Video: video, AudioPath: audioPath}, nil
}

func (f *Fetcher) fetchMetadata(ctx context.Context, sourceURL string) (videoInfo, error) {
	ctx, cancel := withSeconds(ctx, f.cfg.MetadataTimeoutSeconds)
	defer cancel()

	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings", "--skip-download"}
	args = append(args, f.cookieArgs()...)
	args = append(args, sourceURL)
	out, err := f.run(ctx, f.cfg.YtDlpBinary, args...)
	if err != nil {
		return videoInfo{}, acquisitionError("metadata", "yt-dlp metadata lookup failed", err)
	}
	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return videoInfo{}, acquisitionError("metadata", "decode yt-dlp metadata", err)
	}
	return info, nil
}

func (f *Fetcher) checkEligible(info videoInfo) error {
	switch {
	case info.IsLive || info.LiveStatus == "is_live":
		return acquisitionError("metadata", "live streams cannot be split", nil)
	case info.LiveStatus == "is_upcoming":
		return acquisitionError("metadata", "stream has not started", nil)
	case info.WasLive && info.LiveStatus == "post_live":
		return acquisitionError("metadata", "stream recording is still being processed", nil)
	case info.AgeLimit >= 18 && strings.TrimSpace(f.cfg.CookiesFile) == "":
		return acquisitionError("metadata", "age-restricted video requires fetch.cookies_file", nil)
	}
	switch info.Availability {
	case "", "public", "unlisted":
		return nil
	default:
		return acquisitionError("metadata", fmt.Sprintf("video availability %q is not downloadable", info.Availability), nil)
	}
}

func (f *Fetcher) download(ctx context.Context, sourceURL, workDir, videoID string) (string, error) {
	ctx, cancel := withSeconds(ctx, f.cfg.DownloadTimeoutSeconds)
	defer cancel()

	template := filepath.Join(workDir, videoID+".source.%(ext)s")
	args := []string{
		"--format", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--output", template,
	}
	args = append(args, f.cookieArgs()...)
	args = append(args, sourceURL)
	if _, err := f.run(ctx, f.cfg.YtDlpBinary, args...); err != nil {
		return "", acquisitionError("download", "yt-dlp download failed", err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, videoID+".source.*"))
	if err != nil {
		return "", acquisitionError("download", "locate downloaded file", err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		return match, nil
	}
	return "", acquisitionError("download", "yt-dlp produced no audio file", nil)
}

func (f *Fetcher) convert(ctx context.Context, source, dest string) error {
	ctx, cancel := withSeconds(ctx, f.cfg.DownloadTimeoutSeconds)
	defer cancel()

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
	}
	if f.cfg.Denoise {
		args = append(args, "-af", "afftdn")
	}
	args = append(args,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-acodec", "pcm_s16le",
		dest,
	)
	if _, err := f.run(ctx, f.cfg.FFmpegBinary, args...); err != nil {
		return acquisitionError("convert", "ffmpeg conversion failed", err)
	}
	return nil
}

func (f *Fetcher) cookieArgs() []string {
	if path := strings.TrimSpace(f.cfg.CookiesFile); path != "" {
		return []string{"--cookies", path}
	}
	return nil
}

func withSeconds(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

func acquisitionError(operation, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		message += " (timed out)"
	}
	return services.Wrap(services.ErrAcquisition, "fetch", operation, message, err)
}

// removePartial deletes every artifact Fetch may have written for videoID.
func removePartial(workDir, videoID string) {
	matches, err := filepath.Glob(filepath.Join(workDir, videoID+".*"))
	if err != nil {
		return
	}
	for _, match := range matches {
		_ = os.RemoveAll(match)
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
