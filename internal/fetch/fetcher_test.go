package fetch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"voxclip/internal/clipstore"
	"voxclip/internal/config"
	"voxclip/internal/fetch"
	"voxclip/internal/logging"
	"voxclip/internal/services"
	"voxclip/internal/testsupport"
)

const videoID = "dQw4w9WgXcQ"

type scriptedTools struct {
	t            *testing.T
	metadataJSON string
	failOn       string
	mu           sync.Mutex
	calls        [][]string
}

func (s *scriptedTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()

	switch {
	case name == "yt-dlp" && slices.Contains(args, "--dump-single-json"):
		if s.failOn == "metadata" {
			return nil, errors.New("ERROR: Video unavailable")
		}
		return []byte(s.metadataJSON), nil
	case name == "yt-dlp":
		if s.failOn == "download" {
			return nil, errors.New("ERROR: HTTP Error 403")
		}
		idx := slices.Index(args, "--output")
		target := strings.Replace(args[idx+1], "%(ext)s", "webm", 1)
		testsupport.WriteFile(s.t, target, 128)
		return nil, nil
	case name == "ffmpeg":
		dest := args[len(args)-1]
		if s.failOn == "convert" {
			testsupport.WriteFile(s.t, dest, 10)
			return nil, errors.New("ffmpeg: invalid data")
		}
		testsupport.WriteSpeechWAV(s.t, dest, 16000, 3, testsupport.Voiced{Start: 1, End: 2})
		return nil, nil
	}
	s.t.Fatalf("unexpected command %s %v", name, args)
	return nil, nil
}

func (s *scriptedTools) call(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c[0] == name {
			return c
		}
	}
	return nil
}

const publicMetadata = `{"id":"dQw4w9WgXcQ","title":"Demo","description":"desc","uploader":"chan","upload_date":"20240102","thumbnail":"https://i.ytimg.com/x.jpg","duration":3,"is_live":false,"age_limit":0,"availability":"public"}`

func newFetcher(t *testing.T, tools *scriptedTools, mutate func(*config.Config)) (*fetch.Fetcher, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	f := fetch.New(cfg, logging.NewNop(),
		fetch.WithCommandRunner(tools.run),
		fetch.WithClock(func() time.Time { return fixed }),
	)
	return f, filepath.Join(cfg.Paths.StagingDir, videoID)
}

func TestFetchProducesWAVAndMetadata(t *testing.T) {
	tools := &scriptedTools{t: t, metadataJSON: publicMetadata}
	f, workDir := newFetcher(t, tools, nil)

	result, err := f.Fetch(context.Background(), "https://youtu.be/"+videoID, workDir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.AudioPath != filepath.Join(workDir, videoID+".wav") {
		t.Fatalf("unexpected audio path %s", result.AudioPath)
	}
	video := result.Video
	if video.VideoID != videoID || video.Title != "Demo" || video.Uploader != "chan" || video.UploadDate != "20240102" {
		t.Fatalf("unexpected metadata %+v", video)
	}
	if video.SampleRate != fetch.TargetSampleRate || video.DurationSeconds != 3 {
		t.Fatalf("unexpected audio properties %+v", video)
	}
	if video.State != clipstore.StateProcessing || video.Status != clipstore.StatusActive {
		t.Fatalf("unexpected state %s/%s", video.Status, video.State)
	}
	if video.SourceURL != fetch.CanonicalURL(videoID) {
		t.Fatalf("unexpected source url %s", video.SourceURL)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != videoID+".wav" {
		t.Fatalf("expected only the converted wav, got %d entries", len(entries))
	}

	ffmpeg := tools.call("ffmpeg")
	for _, want := range []string{"-ac", "1", "-ar", "16000", "-acodec", "pcm_s16le"} {
		if !slices.Contains(ffmpeg, want) {
			t.Fatalf("ffmpeg args missing %q: %v", want, ffmpeg)
		}
	}
	if slices.Contains(ffmpeg, "afftdn") {
		t.Fatal("denoise filter applied while disabled")
	}
}

func TestFetchDenoiseAndCookies(t *testing.T) {
	tools := &scriptedTools{t: t, metadataJSON: strings.Replace(publicMetadata, `"age_limit":0`, `"age_limit":18`, 1)}
	f, workDir := newFetcher(t, tools, func(cfg *config.Config) {
		cfg.Fetch.Denoise = true
		cfg.Fetch.CookiesFile = "/tmp/cookies.txt"
	})
	if _, err := f.Fetch(context.Background(), videoID, workDir); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !slices.Contains(tools.call("ffmpeg"), "afftdn") {
		t.Fatal("expected afftdn filter")
	}
	if !slices.Contains(tools.call("yt-dlp"), "--cookies") {
		t.Fatal("expected cookies to be passed to yt-dlp")
	}
}

func TestFetchRejectsIneligibleVideos(t *testing.T) {
	cases := map[string]string{
		"live":     strings.Replace(publicMetadata, `"is_live":false`, `"is_live":true`, 1),
		"upcoming": strings.Replace(publicMetadata, `"is_live":false`, `"is_live":false,"live_status":"is_upcoming"`, 1),
		"age":      strings.Replace(publicMetadata, `"age_limit":0`, `"age_limit":18`, 1),
		"private":  strings.Replace(publicMetadata, `"availability":"public"`, `"availability":"private"`, 1),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			tools := &scriptedTools{t: t, metadataJSON: doc}
			f, workDir := newFetcher(t, tools, nil)
			_, err := f.Fetch(context.Background(), videoID, workDir)
			if !errors.Is(err, services.ErrAcquisition) {
				t.Fatalf("expected ErrAcquisition, got %v", err)
			}
			if tools.call("ffmpeg") != nil {
				t.Fatal("conversion should not run for ineligible video")
			}
		})
	}
}

func TestFetchFailuresCleanUp(t *testing.T) {
	for _, stage := range []string{"metadata", "download", "convert"} {
		t.Run(stage, func(t *testing.T) {
			tools := &scriptedTools{t: t, metadataJSON: publicMetadata, failOn: stage}
			f, workDir := newFetcher(t, tools, nil)
			_, err := f.Fetch(context.Background(), videoID, workDir)
			if !errors.Is(err, services.ErrAcquisition) {
				t.Fatalf("expected ErrAcquisition, got %v", err)
			}
			entries, err := os.ReadDir(workDir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Fatalf("expected work dir to be empty after failure, found %d entries", len(entries))
			}
		})
	}
}

func TestFetchRejectsBadReference(t *testing.T) {
	tools := &scriptedTools{t: t, metadataJSON: publicMetadata}
	f, workDir := newFetcher(t, tools, nil)
	if _, err := f.Fetch(context.Background(), "https://example.com/video", workDir); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(tools.calls) != 0 {
		t.Fatal("no tool should run for an invalid reference")
	}
}
