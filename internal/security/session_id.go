package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DefaultSessionIDBytes is the entropy behind a raw session id (hex-encoded to twice the length).
const DefaultSessionIDBytes = 40

// NewSessionID returns n random bytes, hex-encoded. The result is embedded in a signed token
// and must never be stored; persist HashSessionID(id) instead.
func NewSessionID(n int) (string, error) {
	if n <= 0 {
		n = DefaultSessionIDBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSessionID returns the hex-encoded SHA-256 of a raw session id.
func HashSessionID(sessionID string) string {
	h := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(h[:])
}

// SessionIDHashEqual reports in constant time whether sessionID hashes to storedHash.
// Empty inputs never match.
func SessionIDHashEqual(sessionID, storedHash string) bool {
	if sessionID == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashSessionID(sessionID)), []byte(storedHash)) == 1
}
