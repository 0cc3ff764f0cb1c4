package transcribe_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxclip/internal/clipstore"
	"voxclip/internal/logging"
	"voxclip/internal/services"
	"voxclip/internal/transcribe"
)

func makeClips(n int) []clipstore.Clip {
	clips := make([]clipstore.Clip, n)
	for i := range clips {
		name := fmt.Sprintf("vid-%03d.wav", i+1)
		clips[i] = clipstore.Clip{Index: i + 1, Name: name, File: name}
	}
	return clips
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	langs []string
	fn    func(path string) (string, error)
}

func (r *recorder) Transcribe(_ context.Context, path, lang string) (string, error) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.langs = append(r.langs, lang)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(path)
	}
	return "text for " + filepath.Base(path), nil
}

func TestRunTranscribesAllClips(t *testing.T) {
	rec := &recorder{}
	coord := transcribe.NewCoordinator(rec, 3, time.Second, logging.NewNop())
	clips := makeClips(5)

	report, err := coord.Run(context.Background(), "/clips/vid", clips, transcribe.Options{Language: "si"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Attempted != 5 || report.Succeeded != 5 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("unexpected counts %+v", report)
	}
	for i, outcome := range report.Outcomes {
		if outcome.Index != i+1 || outcome.Status != transcribe.OutcomeSucceeded {
			t.Fatalf("unexpected outcome %+v", outcome)
		}
	}
	for _, clip := range report.Clips {
		if clip.Transcript != "text for "+clip.Name || clip.TranscriptLanguage != "si" || clip.TranscribedAt == nil {
			t.Fatalf("clip not updated: %+v", clip)
		}
	}
	if clips[0].Transcript != "" {
		t.Fatal("input slice must not be mutated")
	}
	if rec.paths[0] != filepath.Join("/clips/vid", filepath.Base(rec.paths[0])) {
		t.Fatalf("unexpected path %s", rec.paths[0])
	}
}

func TestRunPartialFailure(t *testing.T) {
	rec := &recorder{fn: func(path string) (string, error) {
		switch filepath.Base(path) {
		case "vid-002.wav":
			return "", errors.New("provider exploded")
		case "vid-004.wav":
			return "   ", nil
		}
		return "ok", nil
	}}
	coord := transcribe.NewCoordinator(rec, 2, time.Second, logging.NewNop())

	report, err := coord.Run(context.Background(), "/d", makeClips(4), transcribe.Options{Language: "en"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Attempted != 4 || report.Succeeded != 2 || report.Failed != 2 {
		t.Fatalf("unexpected counts %+v", report)
	}
	for _, clip := range report.Clips {
		failed := clip.Name == "vid-002.wav" || clip.Name == "vid-004.wav"
		if failed && (clip.Transcript != "" || clip.TranscriptError == "") {
			t.Fatalf("failed clip recorded incorrectly: %+v", clip)
		}
		if !failed && (clip.Transcript != "ok" || clip.TranscriptError != "") {
			t.Fatalf("successful clip recorded incorrectly: %+v", clip)
		}
	}
}

func TestRunSkipsTranscribedUnlessForced(t *testing.T) {
	clips := makeClips(3)
	clips[0].Transcript = "existing"
	clips[2].Transcript = "existing"

	var calls atomic.Int32
	provider := transcribe.TranscriberFunc(func(context.Context, string, string) (string, error) {
		calls.Add(1)
		return "fresh", nil
	})
	coord := transcribe.NewCoordinator(provider, 4, time.Second, logging.NewNop())

	report, err := coord.Run(context.Background(), "/d", clips, transcribe.Options{Language: "si"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Attempted != 1 || report.Skipped != 2 || calls.Load() != 1 {
		t.Fatalf("unexpected counts %+v calls=%d", report, calls.Load())
	}
	if report.Clips[0].Transcript != "existing" {
		t.Fatal("skipped clip transcript changed")
	}

	calls.Store(0)
	report, err = coord.Run(context.Background(), "/d", clips, transcribe.Options{Language: "si", Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Attempted != 3 || report.Skipped != 0 || calls.Load() != 3 {
		t.Fatalf("forced run: %+v calls=%d", report, calls.Load())
	}
	for _, clip := range report.Clips {
		if clip.Transcript != "fresh" {
			t.Fatalf("forced clip not replaced: %+v", clip)
		}
	}
}

func TestRunForcedFailureClearsPreviousTranscript(t *testing.T) {
	clips := makeClips(1)
	clips[0].Transcript = "stale"
	provider := transcribe.TranscriberFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("boom")
	})
	coord := transcribe.NewCoordinator(provider, 1, time.Second, logging.NewNop())
	report, err := coord.Run(context.Background(), "/d", clips, transcribe.Options{Language: "si", Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Clips[0].Transcript != "" || report.Clips[0].TranscriptError == "" {
		t.Fatalf("expected cleared transcript with error, got %+v", report.Clips[0])
	}
}

func TestRunClipSubset(t *testing.T) {
	rec := &recorder{}
	coord := transcribe.NewCoordinator(rec, 2, time.Second, logging.NewNop())

	report, err := coord.Run(context.Background(), "/d", makeClips(4), transcribe.Options{Language: "si", ClipNames: []string{"vid-003.wav", "vid-001.wav", "vid-003.wav"}})
	if err != nil {
		t.Fatal(err)
	}
	if report.Attempted != 2 || len(report.Outcomes) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Outcomes[0].Name != "vid-001.wav" || report.Outcomes[1].Name != "vid-003.wav" {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
	if report.Clips[1].Transcript != "" || report.Clips[3].Transcript != "" {
		t.Fatal("unselected clips must stay untouched")
	}
}

func TestRunUnknownClipFailsBeforeCalls(t *testing.T) {
	rec := &recorder{}
	coord := transcribe.NewCoordinator(rec, 2, time.Second, logging.NewNop())
	_, err := coord.Run(context.Background(), "/d", makeClips(2), transcribe.Options{Language: "si", ClipNames: []string{"vid-001.wav", "nope.wav"}})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rec.paths) != 0 {
		t.Fatal("no provider call expected")
	}
}

func TestRunRejectsInvalidLanguage(t *testing.T) {
	coord := transcribe.NewCoordinator(&recorder{}, 1, time.Second, logging.NewNop())
	for _, lang := range []string{"", "not a language!!"} {
		if _, err := coord.Run(context.Background(), "/d", makeClips(1), transcribe.Options{Language: lang}); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("language %q: expected ErrValidation, got %v", lang, err)
		}
	}
}

func TestRunPerClipTimeout(t *testing.T) {
	provider := transcribe.TranscriberFunc(func(ctx context.Context, path, _ string) (string, error) {
		if filepath.Base(path) == "vid-001.wav" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "quick", nil
	})
	coord := transcribe.NewCoordinator(provider, 2, 50*time.Millisecond, logging.NewNop())
	report, err := coord.Run(context.Background(), "/d", makeClips(2), transcribe.Options{Language: "si"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.Outcomes[0].Status != transcribe.OutcomeFailed || !strings.Contains(report.Outcomes[0].Error, "timed out") {
		t.Fatalf("expected timeout failure, got %+v", report.Outcomes[0])
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	provider := transcribe.TranscriberFunc(func(context.Context, string, string) (string, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inflight.Add(-1)
		return "x", nil
	})
	coord := transcribe.NewCoordinator(provider, 3, time.Second, logging.NewNop())
	if _, err := coord.Run(context.Background(), "/d", makeClips(12), transcribe.Options{Language: "si"}); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Fatalf("worker limit exceeded: %d", peak.Load())
	}
}

func TestNormalizeLanguage(t *testing.T) {
	got, err := transcribe.NormalizeLanguage(" en-us ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "en-US" {
		t.Fatalf("unexpected canonical tag %q", got)
	}
}
