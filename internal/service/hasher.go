package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for password and verification-code hashing. Changing
// them invalidates every stored hash, so they are fixed constants rather
// than configuration.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 32
)

// CredentialHasher derives and verifies scrypt digests for passwords and
// one-time codes. Salts are hex strings and participate in the derivation
// as their ASCII bytes, so stored salt and hash round-trip as plain text.
type CredentialHasher struct{}

func NewCredentialHasher() *CredentialHasher {
	return &CredentialHasher{}
}

// NewSalt returns a fresh random salt as a hex string.
func (h *CredentialHasher) NewSalt() (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// Hash derives the hex-encoded scrypt digest of secret under salt.
func (h *CredentialHasher) Hash(secret, salt string) (string, error) {
	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Verify reports whether secret hashes to expected under salt. The
// comparison is constant time over the derived digests.
func (h *CredentialHasher) Verify(secret, salt, expected string) (bool, error) {
	derived, err := h.Hash(secret, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(expected)) == 1, nil
}
