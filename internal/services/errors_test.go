package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"voxclip/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrAcquisition, "split", "download", "yt-dlp failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"split", "download", "yt-dlp failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "split", "validate", "bad padding", nil), "validation"},
		{services.Wrap(services.ErrNotFound, "transcribe", "locate", "missing", nil), "not_found"},
		{services.Wrap(services.ErrConflict, "split", "locate", "completed", nil), "conflict"},
		{services.Wrap(services.ErrPersistence, "save", "commit", "", errors.New("db")), "persistence"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrSegmentation, "split", "", "", nil)), "segmentation"},
		{errors.New("plain"), "internal"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !services.IsTransient(services.Wrap(services.ErrTimeout, "save", "upload", "", nil)) {
		t.Fatal("expected timeout to be transient")
	}
	if services.IsTransient(services.Wrap(services.ErrUpload, "save", "upload", "forbidden", nil)) {
		t.Fatal("expected plain upload error to be permanent")
	}
	if services.IsTransient(context.Canceled) {
		t.Fatal("expected cancellation to be permanent")
	}
}
