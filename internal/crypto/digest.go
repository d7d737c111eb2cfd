package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Digest computes deterministic keyed digests (HMAC-SHA256) used as blind
// indexes: equality lookups on encrypted columns without storing or
// decrypting the plaintext. Never reversible.
type Digest struct {
	key []byte
}

// NewDigest creates a Digest keyed with the process-wide secret.
func NewDigest(secret string) *Digest {
	return &Digest{key: []byte(secret)}
}

// Sum returns the HMAC-SHA256 of message as a lowercase hex string.
func (d *Digest) Sum(message string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
