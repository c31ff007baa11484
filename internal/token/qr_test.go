package token

import (
	"strings"
	"testing"
)

func TestPayloadFormat(t *testing.T) {
	if got, want := Payload(123), "HVMS:visitor:123"; got != want {
		t.Fatalf("Payload = %q, want %q", got, want)
	}
}

func TestParsePayloadRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 42, 987654321} {
		got, err := ParsePayload(Payload(id))
		if err != nil {
			t.Fatalf("ParsePayload(Payload(%d)): %v", id, err)
		}
		if got != id {
			t.Fatalf("round trip: got %d, want %d", got, id)
		}
	}
}

func TestParsePayloadRejectsForeignPayloads(t *testing.T) {
	bad := []string{
		"",
		"HVMS:visitor",
		"HVMS:visitor:abc",
		"HVMS:visitor:0",
		"HVMS:visitor:-4",
		"HVMS:patient:3",
		"OTHER:visitor:3",
		"HVMS:visitor:3:extra",
	}
	for _, p := range bad {
		if id, err := ParsePayload(p); err == nil {
			t.Errorf("ParsePayload(%q) = %d, want error", p, id)
		}
	}
}

func TestIssueRendersDataURL(t *testing.T) {
	tok, err := NewIssuer().Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Payload != "HVMS:visitor:7" {
		t.Fatalf("payload = %q", tok.Payload)
	}
	if !strings.HasPrefix(tok.DataURL, "data:image/png;base64,") {
		t.Fatalf("rendering is not a png data url: %.40q", tok.DataURL)
	}
	if len(tok.DataURL) <= len("data:image/png;base64,") {
		t.Fatal("rendering is empty")
	}
	if tok.IssuedAt.IsZero() {
		t.Fatal("IssuedAt not set")
	}
}
