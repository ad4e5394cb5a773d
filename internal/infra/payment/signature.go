package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"masterclass-reconciler/internal/domain/ports/adapter"
)

var _ adapter.SignatureVerifier = (*HMACVerifier)(nil)

// Sign returns hex(HMAC-SHA256(orderID + "|" + paymentID, secret)), the
// signature the gateway attaches to a payment confirmation.
func Sign(orderID, paymentID, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches the gateway signature for the
// order/payment pair. Empty inputs never verify. Comparison is constant time.
func Verify(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HMACVerifier binds the shared gateway secret for use as a port.
type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

func (v *HMACVerifier) Verify(orderID, paymentID, signature string) bool {
	return Verify(orderID, paymentID, signature, v.secret)
}
