package visitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mediward/visitor-gateway/internal/storage"
	"github.com/mediward/visitor-gateway/internal/token"
)

// TokenIssuer produces the check-in token for a visitor record.
type TokenIssuer interface {
	Issue(visitorID int64) (token.Token, error)
}

// Service is the custody orchestrator. Registration runs
// row insert → token issue → proof upload, in that order: the upload is last
// so a failed registration can never leave an object in storage without a
// committed token, and a token failure compensates with a cheap row delete.
// Nothing is retried internally; retries are the caller's call.
type Service struct {
	store  Store
	blobs  storage.BlobStore
	alloc  *storage.Allocator
	issuer TokenIssuer
	urlTTL time.Duration
	now    func() time.Time
}

func NewService(store Store, blobs storage.BlobStore, alloc *storage.Allocator, issuer TokenIssuer, signedURLTTL time.Duration) *Service {
	if signedURLTTL <= 0 {
		signedURLTTL = 5 * time.Minute
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		alloc:  alloc,
		issuer: issuer,
		urlTTL: signedURLTTL,
		now:    time.Now,
	}
}

// Upload carries one identity-proof file out of the multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type RegisterInput struct {
	Name          string
	ContactNumber string
	Address       string
	Purpose       string
	PatientID     *int64
	Proof         *Upload // nil when no file was submitted
}

type Registration struct {
	Visitor    Visitor
	ObjectName string // empty when no proof was uploaded
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Registration, error) {
	if in.Name == "" || in.ContactNumber == "" {
		return Registration{}, fmt.Errorf("%w: name and contact required", ErrValidation)
	}
	now := s.now()

	var pat *Patient
	if in.PatientID != nil {
		p, err := s.store.GetPatient(ctx, *in.PatientID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return Registration{}, err
			}
		} else {
			pat = &p
		}
	}

	id, err := s.store.CreateVisitor(ctx, CreateVisitorInput{
		Name:          in.Name,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		Purpose:       in.Purpose,
		PatientID:     in.PatientID,
		CheckInTime:   now,
	})
	if err != nil {
		return Registration{}, err
	}

	tok, err := s.issuer.Issue(id)
	if err != nil {
		if delErr := s.store.DeleteVisitor(ctx, id); delErr != nil {
			return Registration{}, fmt.Errorf("%w: %v (cleanup failed: %v)", ErrTokenRender, err, delErr)
		}
		return Registration{}, fmt.Errorf("%w: %v", ErrTokenRender, err)
	}
	if err := s.store.SetCheckInToken(ctx, id, tok.DataURL); err != nil {
		_ = s.store.DeleteVisitor(ctx, id)
		return Registration{}, fmt.Errorf("%w: %v", ErrTokenRender, err)
	}

	var objectName string
	if in.Proof != nil {
		objectName = s.alloc.Allocate(id, in.Proof.Filename, now)
		if err := s.blobs.EnsureBucket(ctx); err != nil {
			return Registration{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if err := s.blobs.Put(ctx, objectName, in.Proof.Content, in.Proof.Size, in.Proof.ContentType); err != nil {
			// Nothing was uploaded; the row stays with a NULL proof reference.
			return Registration{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if err := s.store.SetIDProofRef(ctx, id, objectName); err != nil {
			return Registration{}, err
		}
	}

	v := Visitor{
		VisitorID:     id,
		Name:          in.Name,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		Purpose:       in.Purpose,
		PatientID:     in.PatientID,
		CheckInTime:   now,
		IDProof:       objectName,
		QRCode:        tok.DataURL,
	}
	if pat != nil {
		v.PatientName, v.Ward = pat.Name, pat.Ward
	}
	return Registration{Visitor: v, ObjectName: objectName}, nil
}

// ProofRedirectURL resolves a visitor's stored object name, verifies the
// object still exists, and returns a signed, time-limited retrieval URL. The
// persisted reference is never trusted without the existence check.
func (s *Service) ProofRedirectURL(ctx context.Context, visitorID int64) (string, error) {
	name, err := s.store.GetIDProofRef(ctx, visitorID)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: visitor %d has no identity proof", ErrNotFound, visitorID)
	}
	ok, err := s.blobs.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: identity proof missing from storage", ErrNotFound)
	}
	u, err := s.blobs.SignedURL(ctx, name, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return u, nil
}

// OpenProof is the direct-download fallback for the staff surface: it
// returns the object name, content type and a stream of the stored bytes.
func (s *Service) OpenProof(ctx context.Context, visitorID int64) (string, string, io.ReadCloser, error) {
	name, err := s.store.GetIDProofRef(ctx, visitorID)
	if err != nil {
		return "", "", nil, err
	}
	if name == "" {
		return "", "", nil, fmt.Errorf("%w: visitor %d has no identity proof", ErrNotFound, visitorID)
	}
	ct, err := s.blobs.ContentType(ctx, name)
	if err != nil {
		return "", "", nil, mapStorageErr(err)
	}
	rc, err := s.blobs.Get(ctx, name)
	if err != nil {
		return "", "", nil, mapStorageErr(err)
	}
	return name, ct, rc, nil
}

// CheckOut stamps the visitor's departure time.
func (s *Service) CheckOut(ctx context.Context, visitorID int64) (time.Time, error) {
	at := s.now()
	if err := s.store.SetCheckOutTime(ctx, visitorID, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func mapStorageErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: identity proof missing from storage", ErrNotFound)
	}
	return fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
}
