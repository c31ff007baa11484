package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound reports an object that is genuinely absent from the store.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable reports a transport or auth failure talking to the store.
	ErrUnavailable = errors.New("object store unavailable")
	// ErrInvalidContentType rejects uploads with an empty content type.
	ErrInvalidContentType = errors.New("invalid content type")
)

// BlobStore is durable binary storage keyed by opaque object name. The
// container is private; SignedURL is the only sanctioned read path for
// clients, Get exists for the staff streaming fallback.
type BlobStore interface {
	// EnsureBucket creates the container if absent. Idempotent.
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Exists returns (false, nil) for an absent object; errors are reserved
	// for store failures. Callers rely on that distinction for 404 semantics.
	Exists(ctx context.Context, key string) (bool, error)
	ContentType(ctx context.Context, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// SignedURL mints a time-bounded, read-only retrieval URL for key. The
	// lifetime is service-controlled, never request input.
	SignedURL(ctx context.Context, key string, lifetime time.Duration) (string, error)
}
