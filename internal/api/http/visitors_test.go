package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediward/visitor-gateway/internal/storage"
	"github.com/mediward/visitor-gateway/internal/token"
	"github.com/mediward/visitor-gateway/internal/visitor"
)

/* ---------- fakes ---------- */

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	proofs   map[int64]string
	tokens   map[int64]string
	patients map[int64]visitor.Patient
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		proofs:   map[int64]string{},
		tokens:   map[int64]string{},
		patients: map[int64]visitor.Patient{},
	}
}

func (s *fakeStore) CreateVisitor(ctx context.Context, in visitor.CreateVisitorInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.proofs[s.nextID] = ""
	return s.nextID, nil
}

func (s *fakeStore) DeleteVisitor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.proofs, id)
	delete(s.tokens, id)
	return nil
}

func (s *fakeStore) SetCheckInToken(ctx context.Context, id int64, qr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[id] = qr
	return nil
}

func (s *fakeStore) SetIDProofRef(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs[id] = name
	return nil
}

func (s *fakeStore) GetIDProofRef(ctx context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.proofs[id]
	if !ok {
		return "", fmt.Errorf("%w: visitor %d", visitor.ErrNotFound, id)
	}
	return ref, nil
}

func (s *fakeStore) SetCheckOutTime(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proofs[id]; !ok {
		return fmt.Errorf("%w: visitor %d", visitor.ErrNotFound, id)
	}
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]visitor.Visitor, error) { return nil, nil }

func (s *fakeStore) GetPatient(ctx context.Context, id int64) (visitor.Patient, error) {
	p, ok := s.patients[id]
	if !ok {
		return visitor.Patient{}, fmt.Errorf("%w: patient %d", visitor.ErrNotFound, id)
	}
	return p, nil
}

func (s *fakeStore) ListPatients(ctx context.Context) ([]visitor.Patient, error) { return nil, nil }

func (s *fakeStore) CreatePatient(ctx context.Context, p visitor.Patient) (int64, error) {
	return p.PatientID, nil
}

/* ---------- harness ---------- */

type testEnv struct {
	router chi.Router
	store  *fakeStore
	fs     *storage.FSStore
	dir    string
}

// newTestRouter wires real custody parts (fs store, signer, allocator, QR
// issuer) behind the public routes, with only the relational store faked.
func newTestRouter(t *testing.T) testEnv {
	t.Helper()
	signer, err := storage.NewSigner("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	// empty public URL keeps signed URLs relative so the recorder can follow
	fs, err := storage.NewFSStore(dir, "visitor-ids", "", signer)
	if err != nil {
		t.Fatal(err)
	}
	store := newFakeStore()
	svc := visitor.NewService(store, fs, storage.NewAllocator(), token.NewIssuer(), 5*time.Minute)

	r := chi.NewRouter()
	r.Post("/api/visitors", RegisterVisitorHandler(svc))
	r.Get("/api/visitors/{visitorID}/download-id", DownloadIDHandler(svc))
	r.Route("/blob", func(br chi.Router) { MountBlob(br, fs, signer) })
	return testEnv{router: r, store: store, fs: fs, dir: dir}
}

// removeObject simulates out-of-band deletion straight from the filesystem.
func removeObject(t *testing.T, env testEnv, key string) {
	t.Helper()
	if err := os.Remove(filepath.Join(env.dir, "visitor-ids", key)); err != nil {
		t.Fatal(err)
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("idProof", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("fake image bytes")); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

type registerResponse struct {
	Success bool `json:"success"`
	Visitor struct {
		VisitorID  int64   `json:"VisitorID"`
		Name       string  `json:"Name"`
		IDProofUrl *string `json:"IDProofUrl"`
		QRCode     string  `json:"QRCode"`
	} `json:"visitor"`
}

/* ---------- tests ---------- */

func TestRegisterMissingFieldsIs400(t *testing.T) {
	env := newTestRouter(t)

	body, ct := multipartBody(t, map[string]string{"name": "A. Patel"}, "")
	req := httptest.NewRequest("POST", "/api/visitors", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
		t.Fatalf("error body missing: %s", w.Body.String())
	}
}

func TestRegisterWithoutFile(t *testing.T) {
	env := newTestRouter(t)

	body, ct := multipartBody(t, map[string]string{
		"name":    "A. Patel",
		"contact": "555-0100",
	}, "")
	req := httptest.NewRequest("POST", "/api/visitors", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp registerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Visitor.Name != "A. Patel" {
		t.Fatalf("bad response: %s", w.Body.String())
	}
	if resp.Visitor.IDProofUrl != nil {
		t.Fatalf("IDProofUrl = %q, want null", *resp.Visitor.IDProofUrl)
	}
	if !strings.HasPrefix(resp.Visitor.QRCode, "data:image/png;base64,") {
		t.Fatalf("QRCode missing or not a data url: %.40q", resp.Visitor.QRCode)
	}
}

func TestRegisterThenDownloadRedirectsToSignedURL(t *testing.T) {
	env := newTestRouter(t)

	body, ct := multipartBody(t, map[string]string{
		"name":    "A. Patel",
		"contact": "555-0100",
	}, "my id.png")
	req := httptest.NewRequest("POST", "/api/visitors", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	var resp registerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Visitor.IDProofUrl == nil {
		t.Fatal("IDProofUrl missing after upload")
	}

	// stored object name is sanitized and recorded against the visitor
	ref, err := env.store.GetIDProofRef(context.Background(), resp.Visitor.VisitorID)
	if err != nil || ref == "" {
		t.Fatalf("proof ref = (%q, %v)", ref, err)
	}
	if strings.Contains(ref, " ") {
		t.Fatalf("object name contains spaces: %q", ref)
	}

	// download endpoint 302s to a signed URL, never the raw key alone
	req = httptest.NewRequest("GET", *resp.Visitor.IDProofUrl, nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("download status = %d, want 302: %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	if !strings.Contains(loc, "sig=") || !strings.Contains(loc, "se=") {
		t.Fatalf("redirect target is not a signed URL: %q", loc)
	}

	// following the redirect serves the stored bytes under verification
	req = httptest.NewRequest("GET", loc, nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("signed fetch status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	data, _ := io.ReadAll(w.Body)
	if string(data) != "fake image bytes" {
		t.Fatalf("served %q", data)
	}

	// a tampered signature is refused
	req = httptest.NewRequest("GET", strings.Replace(loc, "sig=", "sig=00", 1), nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("tampered fetch status = %d, want 403", w.Code)
	}
}

func TestDownloadUnknownVisitorIs404(t *testing.T) {
	env := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/visitors/9999/download-id", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDownloadAfterOutOfBandDeleteIs404(t *testing.T) {
	env := newTestRouter(t)

	body, ct := multipartBody(t, map[string]string{
		"name":    "A. Patel",
		"contact": "555-0100",
	}, "id.png")
	req := httptest.NewRequest("POST", "/api/visitors", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d", w.Code)
	}
	var resp registerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	ref, _ := env.store.GetIDProofRef(context.Background(), resp.Visitor.VisitorID)
	ok, err := env.fs.Exists(context.Background(), ref)
	if err != nil || !ok {
		t.Fatalf("object should exist before delete: (%v, %v)", ok, err)
	}

	// simulate out-of-band deletion from storage, reference left behind
	removeObject(t, env, ref)

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/visitors/%d/download-id", resp.Visitor.VisitorID), nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with no credential issued", w.Code)
	}
}
