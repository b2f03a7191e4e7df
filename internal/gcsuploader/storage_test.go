package gcsuploader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type memObjects struct {
	objects  map[string][]byte
	writeErr error
	closed   bool
}

type memWriter struct {
	store *memObjects
	key   string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.store.writeErr != nil {
		return 0, w.store.writeErr
	}
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	if w.store.writeErr == nil {
		w.store.objects[w.key] = w.buf.Bytes()
	}
	return nil
}

func (m *memObjects) NewWriter(_ context.Context, bucket, object string) io.WriteCloser {
	return &memWriter{store: m, key: bucket + "/" + object}
}

func (m *memObjects) NewReader(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	data, ok := m.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object doesn't exist")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Close() error {
	m.closed = true
	return nil
}

func TestBucket_ArchiveAndFetch(t *testing.T) {
	objects := &memObjects{objects: map[string][]byte{}}
	b := newBucketWithStore(objects, "raw-uploads")
	ctx := context.Background()

	uri, err := b.Archive(ctx, "uploads/2024/03/10/up-1-extrato.csv", []byte("data,descricao,valor\n"))
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if want := "gs://raw-uploads/uploads/2024/03/10/up-1-extrato.csv"; uri != want {
		t.Errorf("Archive() uri = %q, want %q", uri, want)
	}

	got, err := b.Fetch(ctx, uri)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "data,descricao,valor\n" {
		t.Errorf("Fetch() = %q", got)
	}

	if err := b.Close(); err != nil || !objects.closed {
		t.Errorf("Close() = %v, closed = %v", err, objects.closed)
	}
}

func TestBucket_ArchiveWriteError(t *testing.T) {
	objects := &memObjects{objects: map[string][]byte{}, writeErr: errors.New("quota exceeded")}
	b := newBucketWithStore(objects, "raw-uploads")

	if _, err := b.Archive(context.Background(), "a.csv", []byte("x")); err == nil {
		t.Fatal("Archive() expected error")
	}
	if len(objects.objects) != 0 {
		t.Errorf("no object should be stored, got %v", objects.objects)
	}
}

func TestBucket_FetchErrors(t *testing.T) {
	b := newBucketWithStore(&memObjects{objects: map[string][]byte{}}, "raw-uploads")

	for _, uri := range []string{"https://example.com/a.csv", "gs://raw-uploads/missing.csv"} {
		if _, err := b.Fetch(context.Background(), uri); err == nil {
			t.Errorf("Fetch(%q) expected error", uri)
		}
	}
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/file.csv", "bucket", "file.csv", false},
		{"gs://bucket/a/b/c.csv", "bucket", "a/b/c.csv", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file.csv", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = %q, %q, want %q, %q", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/file.csv": "file.csv",
		"gs://bucket/file.csv":        "file.csv",
		"gs://bucket":                 "bucket",
	}
	for uri, want := range tests {
		if got := ExtractFilenameFromGCSURI(uri); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", uri, got, want)
		}
	}
}
