package deps

import (
	"os"
	"path/filepath"
	"testing"

	"voxclip/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\necho present 1.2.3\necho second line\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present, VersionArgs: []string{"--version"}},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Version != "present 1.2.3" {
		t.Fatalf("expected first version line, got %q", results[0].Version)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Provider = config.TranscriptionNone
	if got := len(Requirements(&cfg)); got != 2 {
		t.Fatalf("expected yt-dlp and ffmpeg only, got %d", got)
	}
	cfg.Transcription.Provider = config.TranscriptionWhisperX
	reqs := Requirements(&cfg)
	if len(reqs) != 3 || !reqs[2].Optional {
		t.Fatalf("expected optional uvx requirement, got %#v", reqs)
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "yt-dlp", Available: false},
		{Name: "uvx", Available: false, Optional: true},
		{Name: "FFmpeg", Available: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "yt-dlp" {
		t.Fatalf("unexpected missing set: %#v", missing)
	}
}
