package segment_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voxclip/internal/audio/wav"
	"voxclip/internal/segment"
	"voxclip/internal/services"
	"voxclip/internal/testsupport"
	"voxclip/internal/vad"
)

func options() segment.Options {
	return segment.Options{Aggressiveness: 2, StartPadding: 1.0, EndPadding: 0.5, MinClipSeconds: 4.0, FrameMillis: 30}
}

func TestSplitMergesPaddedNeighbours(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.wav")
	testsupport.WriteSpeechWAV(t, source, 16000, 120, testsupport.Voiced{Start: 10, End: 15}, testsupport.Voiced{Start: 16, End: 20})

	out := filepath.Join(dir, "clips")
	result, err := segment.New(nil).Split(context.Background(), source, out, "abc", options())
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if result.VoicedSpans != 2 {
		t.Fatalf("expected two voiced spans, got %d", result.VoicedSpans)
	}
	if len(result.Clips) != 1 {
		t.Fatalf("expected one clip, got %+v", result.Clips)
	}
	clip := result.Clips[0]
	if clip.Index != 1 || clip.Name != "abc-001.wav" {
		t.Fatalf("unexpected clip identity %+v", clip)
	}
	if math.Abs(clip.Padded.Start-9) > 0.05 || math.Abs(clip.Padded.End-20.5) > 0.05 {
		t.Fatalf("expected padded span near [9, 20.5], got %+v", clip.Padded)
	}

	r, err := wav.Open(filepath.Join(out, clip.Name))
	if err != nil {
		t.Fatalf("open clip: %v", err)
	}
	defer r.Close()
	if math.Abs(r.Seconds()-clip.Duration()) > 0.001 {
		t.Fatalf("rendered length %.3f does not match clip duration %.3f", r.Seconds(), clip.Duration())
	}
}

func TestSplitSilentAudioYieldsNoClips(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.wav")
	testsupport.WriteSpeechWAV(t, source, 16000, 20)

	result, err := segment.New(nil).Split(context.Background(), source, filepath.Join(dir, "clips"), "abc", options())
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(result.Clips) != 0 {
		t.Fatalf("expected no clips, got %+v", result.Clips)
	}
}

func TestSplitCorruptAudio(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.wav")
	if err := os.WriteFile(source, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := segment.New(nil).Split(context.Background(), source, filepath.Join(dir, "clips"), "abc", options())
	if !errors.Is(err, services.ErrSegmentation) {
		t.Fatalf("expected segmentation error, got %v", err)
	}
}

func TestSplitUnsupportedRate(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.wav")
	testsupport.WriteSpeechWAV(t, source, 44100, 2)
	_, err := segment.New(nil).Split(context.Background(), source, filepath.Join(dir, "clips"), "abc", options())
	if !errors.Is(err, services.ErrSegmentation) {
		t.Fatalf("expected segmentation error, got %v", err)
	}
}

type classifierFunc func(frame []int16, rate int) (bool, error)

func (f classifierFunc) IsSpeech(frame []int16, rate int) (bool, error) { return f(frame, rate) }

func TestSplitClassifierFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.wav")
	testsupport.WriteSpeechWAV(t, source, 16000, 2)

	boom := errors.New("classifier crashed")
	seg := segment.New(nil, segment.WithClassifierFactory(func(int) (vad.FrameClassifier, error) {
		return classifierFunc(func([]int16, int) (bool, error) { return false, boom }), nil
	}))
	_, err := seg.Split(context.Background(), source, filepath.Join(dir, "clips"), "abc", options())
	if !errors.Is(err, services.ErrSegmentation) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped classifier error, got %v", err)
	}
}

func TestSplitRejectsInvalidOptions(t *testing.T) {
	opts := options()
	opts.EndPadding = -1
	_, err := segment.New(nil).Split(context.Background(), "unused.wav", t.TempDir(), "abc", opts)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func runs(parts ...any) []bool {
	var out []bool
	for k := 0; k < len(parts); k += 2 {
		for range parts[k+1].(int) {
			out = append(out, parts[k].(bool))
		}
	}
	return out
}

func TestDetectSpansSmoothsWithWindow(t *testing.T) {
	// A short burst, a bridged four frame gap, a burst after a closed region,
	// and a region still open at the end of the recording.
	pattern := runs(true, 5, false, 15, true, 20, false, 4, true, 12, false, 12, true, 3, false, 10, true, 15)
	frame := 160
	samples := make([]int16, len(pattern)*frame+50)
	i := 0
	clf := classifierFunc(func([]int16, int) (bool, error) {
		v := pattern[i]
		i++
		return v, nil
	})
	spans, err := segment.DetectSpans(samples, 16000, frame, clf)
	if err != nil {
		t.Fatal(err)
	}
	want := []segment.Span{{Start: 0.2, End: 0.56}, {Start: 0.81, End: 0.96}}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %+v", len(want), spans)
	}
	for k := range want {
		if spans[k] != want[k] {
			t.Fatalf("span %d = %+v, want %+v", k, spans[k], want[k])
		}
	}
}

func TestDetectSpansDropsBurstsShorterThanWindow(t *testing.T) {
	pattern := runs(false, 10, true, 9, false, 30)
	frame := 160
	i := 0
	clf := classifierFunc(func([]int16, int) (bool, error) {
		v := pattern[i]
		i++
		return v, nil
	})
	spans, err := segment.DetectSpans(make([]int16, len(pattern)*frame), 16000, frame, clf)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 0 {
		t.Fatalf("expected no spans, got %+v", spans)
	}
}

func TestSplitContinuousSpeechAtEveryLevel(t *testing.T) {
	cases := []struct {
		name   string
		voiced []testsupport.Voiced
	}{
		{"fully voiced", []testsupport.Voiced{{Start: 0, End: 10}}},
		{"mostly voiced", []testsupport.Voiced{{Start: 0.5, End: 10}}},
	}
	for _, tc := range cases {
		for level := range 4 {
			dir := t.TempDir()
			source := filepath.Join(dir, "raw.wav")
			testsupport.WriteSpeechWAV(t, source, 16000, 10, tc.voiced...)

			opts := options()
			opts.Aggressiveness = level
			result, err := segment.New(nil).Split(context.Background(), source, filepath.Join(dir, "clips"), "abc", opts)
			if err != nil {
				t.Fatalf("%s level %d: Split: %v", tc.name, level, err)
			}
			if len(result.Clips) != 1 {
				t.Fatalf("%s level %d: expected one clip, got %+v", tc.name, level, result.Clips)
			}
			if d := result.Clips[0].Duration(); d < 9 {
				t.Fatalf("%s level %d: clip covers only %.2fs", tc.name, level, d)
			}
		}
	}
}
