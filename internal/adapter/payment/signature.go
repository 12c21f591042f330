package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
)

// Verifier checks webhook authenticity before any state change.
type Verifier interface {
	Verify(body []byte, header string) error
}

// HMACVerifier validates hex-encoded HMAC-SHA256 signatures over the raw
// request body, shared-secret scheme. An optional "sha256=" prefix on the
// header is accepted.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier builds a verifier for the given shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify fails closed: any malformed or mismatched signature is rejected.
func (v *HMACVerifier) Verify(body []byte, header string) error {
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if header == "" {
		return domainErrors.ErrInvalidSignature
	}

	provided, err := hex.DecodeString(header)
	if err != nil {
		return domainErrors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature for a body; used by tests and the gateway fake.
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
