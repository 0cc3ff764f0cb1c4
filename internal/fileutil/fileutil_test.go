package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.wav")
	dst := filepath.Join(dir, "copy.wav")
	if err := os.WriteFile(src, []byte(strings.Repeat("RIFF", 1024)), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst, 0o640); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 4096 {
		t.Fatalf("unexpected size %d", info.Size())
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "clip_metadata.json")

	if err := WriteFileAtomic(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`[{"index":1}]`), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `[{"index":1}]` {
		t.Fatalf("unexpected content %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func writeTree(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"abc-001.wav":        "one",
		"abc-002.wav":        "two",
		"clip_metadata.json": "[]",
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMoveDirSameDevice(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "active", "abc")
	dst := filepath.Join(base, "completed", "abc")
	writeTree(t, src)

	crossDevice, err := MoveDir(src, dst)
	if err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if crossDevice {
		t.Fatal("expected plain rename")
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source removed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "abc-002.wav")); err != nil {
		t.Fatalf("expected moved clip: %v", err)
	}
}

func TestMoveDirCrossDeviceFallsBackToCopy(t *testing.T) {
	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}

	base := t.TempDir()
	src := filepath.Join(base, "active", "abc")
	dst := filepath.Join(base, "completed", "abc")
	writeTree(t, src)

	crossDevice, err := MoveDir(src, dst)
	if err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if !crossDevice {
		t.Fatal("expected copy fallback")
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source removed after copy, got %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "abc-001.wav"))
	if err != nil || string(got) != "one" {
		t.Fatalf("unexpected copied content %q: %v", got, err)
	}
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the published directory, got %d entries", len(entries))
	}
}

func TestMoveDirCopyFailureLeavesSourceIntact(t *testing.T) {
	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}

	base := t.TempDir()
	src := filepath.Join(base, "active", "abc")
	dst := filepath.Join(base, "completed", "abc")
	writeTree(t, src)
	if err := os.Symlink("abc-001.wav", filepath.Join(src, "link.wav")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := MoveDir(src, dst); err == nil {
		t.Fatal("expected copy failure on unsupported entry")
	}
	if _, err := os.Stat(filepath.Join(src, "abc-001.wav")); err != nil {
		t.Fatalf("expected source intact: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial copy removed, found %d entries", len(entries))
	}
}

func TestMoveDirStuckSourceLeavesPublishedCopy(t *testing.T) {
	origRename, origRemove := rename, removeAll
	t.Cleanup(func() { rename, removeAll = origRename, origRemove })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}
	removeAll = func(string) error { return os.ErrPermission }

	base := t.TempDir()
	src := filepath.Join(base, "active", "abc")
	dst := filepath.Join(base, "completed", "abc")
	writeTree(t, src)

	crossDevice, err := MoveDir(src, dst)
	if !errors.Is(err, os.ErrPermission) || !crossDevice {
		t.Fatalf("expected cross-device removal failure, got %v (cross=%v)", err, crossDevice)
	}
	if _, err := os.Stat(filepath.Join(src, "abc-001.wav")); err != nil {
		t.Fatalf("expected source left in place: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "abc-001.wav"))
	if err != nil || string(got) != "one" {
		t.Fatalf("expected published copy, got %q: %v", got, err)
	}
}

func TestMoveDirRejectsExistingDestination(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "a")
	dst := filepath.Join(base, "b")
	writeTree(t, src)
	writeTree(t, dst)
	if _, err := MoveDir(src, dst); err == nil {
		t.Fatal("expected error for existing destination")
	}
}

func TestMoveFileCrossDevice(t *testing.T) {
	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "a.wav")
	dst := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(src, []byte("clip"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "clip" {
		t.Fatalf("unexpected destination: %q %v", got, err)
	}
}
