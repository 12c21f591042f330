package payment

import (
	"testing"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
)

func TestHMACVerifierAcceptsValidSignature(t *testing.T) {
	v := NewHMACVerifier("shared-secret")
	body := []byte(`{"id":"evt_1"}`)

	if err := v.Verify(body, v.Sign(body)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHMACVerifierAcceptsPrefixedHeader(t *testing.T) {
	v := NewHMACVerifier("shared-secret")
	body := []byte(`{"id":"evt_2"}`)

	if err := v.Verify(body, "sha256="+v.Sign(body)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Verify(body, "  sha256="+v.Sign(body)+"  "); err != nil {
		t.Fatalf("surrounding whitespace should be tolerated, got %v", err)
	}
}

func TestHMACVerifierRejects(t *testing.T) {
	v := NewHMACVerifier("shared-secret")
	body := []byte(`{"id":"evt_3"}`)

	cases := []struct {
		name   string
		header string
	}{
		{name: "empty", header: ""},
		{name: "not hex", header: "zzzz"},
		{name: "wrong signature", header: "deadbeef"},
		{name: "different secret", header: NewHMACVerifier("other").Sign(body)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.Verify(body, tc.header); err != domainErrors.ErrInvalidSignature {
				t.Fatalf("expected invalid signature, got %v", err)
			}
		})
	}
}

func TestHMACVerifierBindsBody(t *testing.T) {
	v := NewHMACVerifier("shared-secret")
	sig := v.Sign([]byte(`{"id":"evt_4"}`))

	if err := v.Verify([]byte(`{"id":"evt_5"}`), sig); err != domainErrors.ErrInvalidSignature {
		t.Fatalf("expected invalid signature for altered body, got %v", err)
	}
}
