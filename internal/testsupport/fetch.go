package testsupport

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"voxclip/internal/clipstore"
	"voxclip/internal/fetch"
)

// SpeechFetcher stands in for the yt-dlp downloader. Each Fetch writes a
// 120 second 16 kHz recording whose voiced ranges are Voiced, or three
// default bursts when Voiced is empty. A non-nil Err fails the next Fetch.
type SpeechFetcher struct {
	T      testing.TB
	Voiced []Voiced
	Title  string

	mu    sync.Mutex
	err   error
	calls int
}

// Fetch implements fetch.Downloader.
func (f *SpeechFetcher) Fetch(_ context.Context, ref, workDir string) (fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	id, err := fetch.ExtractVideoID(ref)
	if err != nil {
		return fetch.Result{}, err
	}
	voiced := f.Voiced
	if len(voiced) == 0 {
		voiced = []Voiced{{Start: 10, End: 15}, {Start: 16, End: 20}, {Start: 60, End: 70}}
	}
	title := f.Title
	if title == "" {
		title = "Talk"
	}
	path := filepath.Join(workDir, id+".wav")
	WriteSpeechWAV(f.T, path, 16000, 120, voiced...)
	return fetch.Result{
		Video: clipstore.Video{
			VideoID:         id,
			SourceURL:       fetch.CanonicalURL(id),
			Title:           title,
			Uploader:        "chan",
			DurationSeconds: 120,
			RawAudioPath:    path,
			SampleRate:      16000,
		},
		AudioPath: path,
	}, nil
}

// FailWith makes subsequent fetches return err; nil restores success.
func (f *SpeechFetcher) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls reports how many times Fetch ran.
func (f *SpeechFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
