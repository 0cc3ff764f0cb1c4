// Package localbucket stores objects in a directory tree and hands back
// file:// references. It stands in for object storage on single-host
// deployments and in tests.
package localbucket

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"voxclip/internal/services"
)

// Bucket writes objects beneath Root.
type Bucket struct {
	root string
}

// New returns a bucket rooted at dir. The directory is created on first upload.
func New(dir string) *Bucket {
	return &Bucket{root: dir}
}

// Root returns the bucket directory.
func (b *Bucket) Root() string { return b.root }

// Upload copies r to <root>/<objectName> through a temporary file and
// returns its file:// URL. A short copy is reported as an error.
func (b *Bucket) Upload(ctx context.Context, objectName string, r io.Reader, size int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := b.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("localbucket: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("localbucket: create temp: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		return fail(fmt.Errorf("localbucket: write %s: %w", objectName, err))
	}
	if size >= 0 && written != size {
		return fail(fmt.Errorf("localbucket: short write for %s: %d of %d bytes", objectName, written, size))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("localbucket: sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("localbucket: close: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("localbucket: publish: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (b *Bucket) resolve(objectName string) (string, error) {
	clean := path.Clean("/" + objectName)
	if objectName == "" || clean == "/" || strings.Contains(objectName, "..") {
		return "", services.Wrap(services.ErrValidation, "localbucket", "resolve", fmt.Sprintf("invalid object name %q", objectName), nil)
	}
	return filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
