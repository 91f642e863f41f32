package auth

import (
	"crypto/md5"
	"encoding/hex"
)

// DefaultSalt is the process-wide salt used when none is configured
const DefaultSalt = "SuchJack"

// Codec turns plaintext passwords into stored verifiers
type Codec struct {
	salt string
}

// NewCodec creates a codec with the given salt, falling back to DefaultSalt
func NewCodec(salt string) *Codec {
	if salt == "" {
		salt = DefaultSalt
	}
	return &Codec{salt: salt}
}

// Encode returns the hex MD5 digest of salt+secret.
// The output is deterministic so login can match on the stored verifier.
func (c *Codec) Encode(secret string) string {
	sum := md5.Sum([]byte(c.salt + secret))
	return hex.EncodeToString(sum[:])
}
