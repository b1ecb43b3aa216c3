package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// Archiver keeps a durable copy of generated files.
type Archiver interface {
	Archive(ctx context.Context, name string, r io.Reader) error
}

// GCSArchiver writes files to a Cloud Storage bucket, never overwriting an
// existing object.
type GCSArchiver struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	log    *zap.Logger
}

// NewGCSArchiver connects to bucket with application default credentials.
func NewGCSArchiver(ctx context.Context, bucket, prefix string, log *zap.Logger) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GCSArchiver{client: client, bucket: client.Bucket(bucket), prefix: prefix, log: log}, nil
}

// Archive uploads r as prefix/name. An object that already exists is left
// untouched and reported as success.
func (a *GCSArchiver) Archive(ctx context.Context, name string, r io.Reader) error {
	object := path.Join(a.prefix, name)
	w := a.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			a.log.Info("archive object already exists", zap.String("object", object))
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	a.log.Info("archived file", zap.String("object", object))
	return nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

var _ Archiver = (*GCSArchiver)(nil)
