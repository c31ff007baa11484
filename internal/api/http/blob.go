package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediward/visitor-gateway/internal/storage"
)

// MountBlob serves signed retrieval URLs for the fs driver. This route is
// the store's presentation endpoint: the signature and expiry are verified
// before a byte is streamed, so the container stays private and the signed
// query string is the only read path. Unused when the minio driver presigns
// its own URLs.
func MountBlob(r chi.Router, fs *storage.FSStore, signer *storage.Signer) {
	r.Get("/{bucket}/*", func(w http.ResponseWriter, req *http.Request) {
		bucket := chi.URLParam(req, "bucket")
		key := strings.TrimPrefix(chi.URLParam(req, "*"), "/")
		if bucket != fs.Bucket() || key == "" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := signer.Verify(bucket, key, req.URL.Query(), time.Now()); err != nil {
			http.Error(w, "invalid or expired signature", http.StatusForbidden)
			return
		}
		ct, err := fs.ContentType(req.Context(), key)
		if err != nil {
			blobError(w, err)
			return
		}
		rc, err := fs.Get(req.Context(), key)
		if err != nil {
			blobError(w, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}

func blobError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "storage error", http.StatusInternalServerError)
}
