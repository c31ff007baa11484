package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrSigningUnavailable means key material is missing or malformed. This
	// is a startup configuration error, not a per-request condition.
	ErrSigningUnavailable = errors.New("signing key material unavailable")

	ErrBadSignature = errors.New("signature mismatch")
	ErrExpired      = errors.New("credential expired")
)

// Signer mints and verifies time-bounded read credentials for blob keys, in
// the style of SAS query tokens: se (expiry, unix seconds), sp (permission,
// always "r"), sig (hex HMAC-SHA256 over method, container path, expiry and
// permission). Tampering with any field invalidates sig; the serving side of
// the store verifies before streaming a byte.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrSigningUnavailable
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the query fields authorizing a read of bucket/key until
// now+lifetime.
func (s *Signer) Sign(bucket, key string, now time.Time, lifetime time.Duration) url.Values {
	exp := now.Add(lifetime).Unix()
	v := url.Values{}
	v.Set("se", strconv.FormatInt(exp, 10))
	v.Set("sp", "r")
	v.Set("sig", s.mac(bucket, key, exp, "r"))
	return v
}

// Verify checks q against bucket/key at time now. The signature is checked
// before expiry so a tampered expiry field can never extend a credential.
func (s *Signer) Verify(bucket, key string, q url.Values, now time.Time) error {
	exp, err := strconv.ParseInt(q.Get("se"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	perm := q.Get("sp")
	if perm != "r" {
		return ErrBadSignature
	}
	want := s.mac(bucket, key, exp, perm)
	if !hmac.Equal([]byte(want), []byte(q.Get("sig"))) {
		return ErrBadSignature
	}
	if now.Unix() > exp {
		return ErrExpired
	}
	return nil
}

func (s *Signer) mac(bucket, key string, exp int64, perm string) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "GET\n%s/%s\n%d\n%s", bucket, key, exp, perm)
	return hex.EncodeToString(h.Sum(nil))
}
