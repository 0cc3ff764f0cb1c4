package clipstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxclip/internal/clipstore"
	"voxclip/internal/fileutil"
	"voxclip/internal/logging"
	"voxclip/internal/services"
	"voxclip/internal/testsupport"
)

const videoID = "dQw4w9WgXcQ"

func newStore(t *testing.T) *clipstore.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return clipstore.NewFromConfig(cfg, logging.NewNop())
}

func seedActive(t *testing.T, store *clipstore.Store, clips int) {
	t.Helper()
	dir, err := store.PrepareActive(videoID)
	if err != nil {
		t.Fatalf("PrepareActive: %v", err)
	}
	list := make([]clipstore.Clip, 0, clips)
	for i := 1; i <= clips; i++ {
		name := fmt.Sprintf("%s-%03d.wav", videoID, i)
		testsupport.WriteFile(t, filepath.Join(dir, name), 64)
		list = append(list, clipstore.Clip{Index: i, Name: name, File: name, Start: float64(i * 10), End: float64(i*10 + 5)})
	}
	if err := store.WriteVideo(videoID, clipstore.Video{VideoID: videoID, Status: clipstore.StatusActive, State: clipstore.StateClips, ClipCount: clips}); err != nil {
		t.Fatalf("WriteVideo: %v", err)
	}
	if err := store.WriteClips(videoID, list); err != nil {
		t.Fatalf("WriteClips: %v", err)
	}
}

func TestLocateMissingVideo(t *testing.T) {
	store := newStore(t)
	_, err := store.Locate(videoID)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateRejectsTraversal(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"", "..", "../etc", "a/b", ".hidden"} {
		if _, err := store.Locate(id); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Locate(%q): expected ErrValidation, got %v", id, err)
		}
	}
}

func TestWriteAndReadMetadata(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 2)

	video, loc, err := store.ReadVideo(videoID)
	if err != nil {
		t.Fatalf("ReadVideo: %v", err)
	}
	if loc.Status != clipstore.StatusActive || loc.Dir != store.ActiveDir(videoID) {
		t.Fatalf("unexpected location %+v", loc)
	}
	if video.State != clipstore.StateClips || video.ClipCount != 2 {
		t.Fatalf("unexpected video %+v", video)
	}

	clips, _, err := store.ReadClips(videoID)
	if err != nil {
		t.Fatalf("ReadClips: %v", err)
	}
	if len(clips) != 2 || clips[0].Index != 1 || clips[1].Index != 2 {
		t.Fatalf("unexpected clips %+v", clips)
	}
}

func TestWriteClipsOrdersByIndex(t *testing.T) {
	store := newStore(t)
	if _, err := store.PrepareActive(videoID); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteClips(videoID, []clipstore.Clip{{Index: 3}, {Index: 1}, {Index: 2}}); err != nil {
		t.Fatal(err)
	}
	clips, _, err := store.ReadClips(videoID)
	if err != nil {
		t.Fatal(err)
	}
	for i, clip := range clips {
		if clip.Index != i+1 {
			t.Fatalf("clip %d has index %d", i, clip.Index)
		}
	}
}

func TestReadClipsWithoutMetadataIsEmpty(t *testing.T) {
	store := newStore(t)
	if _, err := store.PrepareActive(videoID); err != nil {
		t.Fatal(err)
	}
	clips, _, err := store.ReadClips(videoID)
	if err != nil {
		t.Fatalf("ReadClips: %v", err)
	}
	if len(clips) != 0 {
		t.Fatalf("expected no clips, got %d", len(clips))
	}
	if _, _, err := store.ReadVideo(videoID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video metadata, got %v", err)
	}
}

func TestPrepareActiveRemovesStaleSplit(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 3)
	keep := filepath.Join(store.ActiveDir(videoID), "notes.txt")
	testsupport.WriteFile(t, keep, 4)

	dir, err := store.PrepareActive(videoID)
	if err != nil {
		t.Fatalf("PrepareActive: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected entries after reset: %v", names)
	}
}

func TestCompleteMovesDirectory(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 2)

	moved, err := store.Complete(videoID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !moved {
		t.Fatal("expected move on first completion")
	}
	if _, err := os.Stat(store.ActiveDir(videoID)); !os.IsNotExist(err) {
		t.Fatalf("active dir still present: %v", err)
	}
	loc, err := store.Locate(videoID)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Status != clipstore.StatusCompleted {
		t.Fatalf("expected completed, got %s", loc.Status)
	}
	clips, _, err := store.ReadClips(videoID)
	if err != nil || len(clips) != 2 {
		t.Fatalf("clips after move: %v (%d)", err, len(clips))
	}

	moved, err = store.Complete(videoID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if moved {
		t.Fatal("second completion should be a no-op")
	}
}

func TestCompleteMissingVideo(t *testing.T) {
	store := newStore(t)
	if _, err := store.Complete(videoID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateConflictWhenBothRootsExist(t *testing.T) {
	store := newStore(t)
	if err := os.MkdirAll(store.ActiveDir(videoID), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(store.CompletedDir(videoID), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Locate(videoID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLocateFinishesInterruptedMove(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 2)
	if err := store.WriteVideo(videoID, clipstore.Video{VideoID: videoID, Status: clipstore.StatusCompleted, State: clipstore.StateComplete, ClipCount: 2}); err != nil {
		t.Fatal(err)
	}
	// A cross-device move that published the completed copy but could not
	// remove the source leaves both trees behind.
	if err := fileutil.CopyTree(store.ActiveDir(videoID), store.CompletedDir(videoID)); err != nil {
		t.Fatal(err)
	}

	loc, err := store.Locate(videoID)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Status != clipstore.StatusCompleted || loc.Dir != store.CompletedDir(videoID) {
		t.Fatalf("expected completed location, got %+v", loc)
	}
	if _, err := os.Stat(store.ActiveDir(videoID)); !os.IsNotExist(err) {
		t.Fatalf("active copy still present: %v", err)
	}
	clips, _, err := store.ReadClips(videoID)
	if err != nil || len(clips) != 2 {
		t.Fatalf("clips after recovery: %v (%d)", err, len(clips))
	}
	if moved, err := store.Complete(videoID); err != nil || moved {
		t.Fatalf("Complete after recovery = %v, %v", moved, err)
	}
}

func TestLocateKeepsConflictWhenCompletedCopyIsUnfinished(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 1)
	if err := fileutil.CopyTree(store.ActiveDir(videoID), store.CompletedDir(videoID)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Locate(videoID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := os.Stat(store.ActiveDir(videoID)); err != nil {
		t.Fatalf("active copy must survive an unconfirmed conflict: %v", err)
	}
}

func TestClipPath(t *testing.T) {
	store := newStore(t)
	seedActive(t, store, 1)
	clips, _, err := store.ReadClips(videoID)
	if err != nil {
		t.Fatal(err)
	}
	name := clips[0].Name

	path, err := store.ClipPath(videoID, name)
	if err != nil {
		t.Fatalf("ClipPath: %v", err)
	}
	if path != filepath.Join(store.ActiveDir(videoID), name) {
		t.Fatalf("unexpected path %s", path)
	}

	for _, bad := range []string{"", "../" + name, "sub/" + name, videoID + "-999.wav", "clip_metadata.json"} {
		if _, err := store.ClipPath(videoID, bad); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("ClipPath(%q): expected ErrNotFound, got %v", bad, err)
		}
	}

	if _, err := store.Complete(videoID); err != nil {
		t.Fatal(err)
	}
	path, err = store.ClipPath(videoID, name)
	if err != nil {
		t.Fatalf("ClipPath after completion: %v", err)
	}
	if path != filepath.Join(store.CompletedDir(videoID), name) {
		t.Fatalf("unexpected completed path %s", path)
	}
}

func TestLockerSerializesVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locker := clipstore.NewLocker(cfg.LockDir())

	unlock, err := locker.Lock(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	if _, ok, err := locker.TryLock(videoID); err != nil || ok {
		t.Fatalf("TryLock while held: ok=%v err=%v", ok, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, videoID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict on timeout, got %v", err)
	}

	release, ok, err := locker.TryLock("otherVideo1")
	if err != nil || !ok {
		t.Fatalf("independent video should lock: ok=%v err=%v", ok, err)
	}
	release()

	unlock()
	again, ok, err := locker.TryLock(videoID)
	if err != nil || !ok {
		t.Fatalf("TryLock after release: ok=%v err=%v", ok, err)
	}
	again()
}
