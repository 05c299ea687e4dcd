package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// The credential store holds SHA-256(salt-bytes || password-bytes),
// with both salt and hash base64-encoded at rest. The construction is
// fixed: changing it would invalidate every stored credential row.

const saltBytes = 16

// GenerateSalt returns a fresh base64-encoded random salt. Salts are
// never reused across users.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashPassword computes the stored hash for a password and salt.
func HashPassword(password, salt string) (string, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("auth: decode salt: %w", err)
	}
	h := sha256.New()
	h.Write(rawSalt)
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// VerifyPassword recomputes the hash and compares it byte-for-byte
// against the stored value.
func VerifyPassword(password, storedHash, salt string) bool {
	computed, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
