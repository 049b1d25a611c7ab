// File: internal/infra/security/signature.go
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of data under secret.
func Sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the gateway's proof for orderID|paymentID.
// The comparison is constant time; a signature in another case or encoding fails.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	expected := Sign(orderID+"|"+paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentSigner binds the gateway secret so callers never handle it.
type PaymentSigner struct {
	secret string
}

func NewPaymentSigner(secret string) *PaymentSigner {
	return &PaymentSigner{secret: secret}
}

func (s *PaymentSigner) Verify(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, s.secret)
}
