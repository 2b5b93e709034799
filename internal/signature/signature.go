package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verify checks an order-webhook signature: HMAC-SHA256 over the exact raw
// request body, base64-encoded, compared in constant time. The body must be
// the unmodified byte sequence as delivered; re-serializing it first breaks
// the signature. A missing signature or an empty secret fails closed.
func Verify(rawBody []byte, suppliedSignature, sharedSecret string) bool {
	if suppliedSignature == "" || sharedSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(suppliedSignature))
}

// Sign computes the signature Verify expects. Used by tests and local tooling.
func Sign(rawBody []byte, sharedSecret string) string {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
