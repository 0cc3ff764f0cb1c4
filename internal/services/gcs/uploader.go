// Package gcs uploads clip audio to Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"voxclip/internal/services"
)

// singleShotLimit is the largest object sent in one request instead of a
// resumable chunked upload.
const singleShotLimit = 8 << 20

// Uploader writes objects to one bucket.
type Uploader struct {
	client *storage.Client
	bucket string
}

// New opens a storage client. credentialsFile may be empty to use
// application default credentials.
func New(ctx context.Context, bucket, credentialsFile string) (*Uploader, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gcs", "open", "bucket name required", nil)
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gcs", "open", "create storage client", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// Bucket returns the configured bucket name.
func (u *Uploader) Bucket() string { return u.bucket }

// Upload streams r to objectName and returns a gs:// reference.
func (u *Uploader) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if size >= 0 && size <= singleShotLimit {
		w.ChunkSize = 0
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", Classify(fmt.Errorf("gcs write %s: %w", objectName, err))
	}
	if err := w.Close(); err != nil {
		return "", Classify(fmt.Errorf("gcs finalize %s: %w", objectName, err))
	}
	return Ref(u.bucket, objectName), nil
}

// Ref formats a gs:// reference.
func Ref(bucket, objectName string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(objectName, "/")
}

// Classify marks retryable API failures as transient. Request timeouts,
// throttling, and server errors are retryable; authorization, quota, and
// missing bucket errors are not.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusRequestTimeout,
			apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code >= 500:
			return services.Wrap(services.ErrTransient, "gcs", "upload", fmt.Sprintf("http %d", apiErr.Code), err)
		default:
			return err
		}
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "gcs", "upload", "request timed out", err)
	}
	return err
}
