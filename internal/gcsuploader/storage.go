// Package gcsuploader archives uploaded statements in Google Cloud Storage
// and fetches files back by gs:// URI.
package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/budget-tracker/internal/logger"
)

// DefaultUploadTimeout bounds a single object write.
const DefaultUploadTimeout = 2 * time.Minute

// objectStore is the slice of the storage client used here.
type objectStore interface {
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Close() error
}

type gcsObjects struct {
	client *storage.Client
}

func (g gcsObjects) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"
	return w
}

func (g gcsObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (g gcsObjects) Close() error {
	return g.client.Close()
}

// Bucket writes raw uploads into one bucket. It satisfies the ingestion
// pipeline's Archiver.
type Bucket struct {
	objects objectStore
	name    string
	timeout time.Duration
}

// NewBucket opens a storage client using Application Default Credentials.
func NewBucket(ctx context.Context, name string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("gcsuploader.NewBucket: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsuploader.NewBucket: creating storage client: %w", err)
	}
	return newBucketWithStore(gcsObjects{client: client}, name), nil
}

func newBucketWithStore(objects objectStore, name string) *Bucket {
	return &Bucket{objects: objects, name: name, timeout: DefaultUploadTimeout}
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Archive stores content under objectName and returns its gs:// URI.
func (b *Bucket) Archive(ctx context.Context, objectName string, content []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	w := b.objects.NewWriter(ctx, b.name, objectName)
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: writing %s: %w", objectName, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalizing %s: %w", objectName, err)
	}

	uri := FormatGCSURI(b.name, objectName)
	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Int("bytes", len(content)).Msg("Archived upload")
	return uri, nil
}

// Fetch downloads the object behind a gs:// URI. The URI may point at any
// bucket the client can read.
func (b *Bucket) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := b.objects.NewReader(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Close closes the storage client.
func (b *Bucket) Close() error {
	return b.objects.Close()
}
