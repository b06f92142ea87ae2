package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and verifies the capture gateway's callback signature:
// HMAC-SHA256 over "orderReference|paymentReference" with the shared secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex signature for the given reference pair.
func (s *Signer) Sign(orderReference, paymentReference string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderReference + "|" + paymentReference))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the presented signature against the expected one in
// constant time.
func (s *Signer) Verify(orderReference, paymentReference, signature string) bool {
	expected := s.Sign(orderReference, paymentReference)
	return hmac.Equal([]byte(expected), []byte(signature))
}
