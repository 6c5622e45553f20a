// Package utils provides password hashing and refresh secret helpers.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewRefreshSecret returns a cryptographically random refresh secret:
// 48 bytes hex-encoded, i.e. 96 printable characters and well over 256 bits
// of entropy. The raw value goes to the client exactly once; only its hash
// is persisted.
func NewRefreshSecret() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashSecret returns the SHA-256 hex digest of a raw refresh secret. Storing
// only the digest keeps a leaked refresh_tokens table from minting sessions.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
