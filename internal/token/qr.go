// Package token issues scannable check-in tokens for visitor records. The
// payload is a lookup key, not an access credential: it carries no secret and
// no signature, but must resolve to exactly one visitor.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	namespaceTag = "HVMS"
	kindVisitor  = "visitor"
	qrSize       = 256
)

// ErrRenderFailed aborts registration: a visitor record must never be
// committed without its check-in artifact.
var ErrRenderFailed = errors.New("check-in token rendering failed")

type Token struct {
	VisitorID int64
	IssuedAt  time.Time
	Payload   string
	DataURL   string // data:image/png;base64,...
}

type Issuer struct {
	now func() time.Time
}

func NewIssuer() *Issuer { return &Issuer{now: time.Now} }

// Payload encodes a visitor id as <namespace-tag>:<kind>:<id>. The tag and
// kind marker leave room for future token kinds without ambiguity.
func Payload(visitorID int64) string {
	return fmt.Sprintf("%s:%s:%d", namespaceTag, kindVisitor, visitorID)
}

func (i *Issuer) Issue(visitorID int64) (Token, error) {
	p := Payload(visitorID)
	png, err := qrcode.Encode(p, qrcode.Medium, qrSize)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return Token{
		VisitorID: visitorID,
		IssuedAt:  i.now(),
		Payload:   p,
		DataURL:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ParsePayload resolves a scanned payload back to a visitor id.
func ParsePayload(p string) (int64, error) {
	parts := strings.Split(p, ":")
	if len(parts) != 3 || parts[0] != namespaceTag || parts[1] != kindVisitor {
		return 0, fmt.Errorf("not a visitor check-in payload: %q", p)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad visitor id in payload: %q", p)
	}
	return id, nil
}
