package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FSStore keeps blobs on the local filesystem for dev/offline deployments.
// The content type for each object lives in a sidecar file next to it.
// Signed URLs point at the service's own /blob route, which verifies the
// signature and expiry before serving — the directory itself is never
// exposed over HTTP.
type FSStore struct {
	base   string
	bucket string
	public string // service public URL, e.g. http://localhost:8080
	signer *Signer
	now    func() time.Time
}

func NewFSStore(base, bucket, publicURL string, signer *Signer) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if bucket == "" {
		return nil, errors.New("empty bucket name")
	}
	if signer == nil {
		return nil, ErrSigningUnavailable
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{
		base:   base,
		bucket: bucket,
		public: strings.TrimSuffix(publicURL, "/"),
		signer: signer,
		now:    time.Now,
	}, nil
}

func (s *FSStore) Bucket() string { return s.bucket }

func (s *FSStore) path(key string) string {
	return filepath.Join(s.base, s.bucket, filepath.Clean("/"+key))
}

func (s *FSStore) EnsureBucket(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(s.base, s.bucket), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if key == "" {
		return errors.New("empty key")
	}
	if strings.TrimSpace(contentType) == "" {
		return ErrInvalidContentType
	}
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.WriteFile(dst+".meta", []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *FSStore) ContentType(ctx context.Context, key string) (string, error) {
	if _, err := os.Stat(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	meta, err := os.ReadFile(s.path(key) + ".meta")
	if err != nil {
		return "application/octet-stream", nil
	}
	return string(meta), nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return f, nil
}

func (s *FSStore) SignedURL(ctx context.Context, key string, lifetime time.Duration) (string, error) {
	q := s.signer.Sign(s.bucket, key, s.now(), lifetime)
	return fmt.Sprintf("%s/blob/%s/%s?%s", s.public, s.bucket, url.PathEscape(key), q.Encode()), nil
}
