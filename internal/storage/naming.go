package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Allocator derives opaque, collision-resistant object names for uploaded
// identity proofs. Names are never reused: each allocation mixes the owner
// id, a millisecond timestamp and fresh entropy, so concurrent uploads for
// the same owner cannot collide. The entropy source is injectable so tests
// can pin it.
type Allocator struct {
	entropy func() string
}

func NewAllocator() *Allocator {
	return &Allocator{entropy: func() string { return uuid.NewString()[:8] }}
}

func NewAllocatorWithEntropy(entropy func() string) *Allocator {
	return &Allocator{entropy: entropy}
}

// Allocate is pure apart from the entropy source: no storage or network
// access happens here.
func (a *Allocator) Allocate(ownerID int64, originalFilename string, now time.Time) string {
	return fmt.Sprintf("visitor-%d-%d-%s-%s",
		ownerID, now.UnixMilli(), a.entropy(), SanitizeFilename(originalFilename))
}

// SanitizeFilename replaces whitespace and path-unsafe characters so the
// result is safe as a storage key segment. Empty input becomes "file".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
