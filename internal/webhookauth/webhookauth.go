// Package webhookauth verifies that inbound webhook events originate from the
// signing provider. The provider signs each callback with
// HMAC-SHA256(secret, event_time || event_type) and sends the hex digest
// alongside the payload; nothing in the payload is trusted until the digest
// checks out.
package webhookauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 digest over eventTime||eventType.
func Sign(eventTime, eventType string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(eventTime))
	mac.Write([]byte(eventType))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether suppliedHex is the provider's signature for the
// given event fields. It returns false on an empty secret, a hex decode
// error, or a length mismatch, and compares in constant time.
func Verify(eventTime, eventType, suppliedHex string, secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	supplied, err := hex.DecodeString(suppliedHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(eventTime))
	mac.Write([]byte(eventType))
	expected := mac.Sum(nil)
	if len(supplied) != len(expected) {
		return false
	}
	return hmac.Equal(supplied, expected)
}
