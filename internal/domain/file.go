package domain

import "context"

// FileStorage abstracts the S3-compatible object store. The returned URL is
// an opaque string from the core's point of view.
type FileStorage interface {
	Upload(ctx context.Context, data []byte, key string, contentType string) (string, error)
}
