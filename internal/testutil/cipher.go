package testutil

import (
	"testing"

	"refile/internal/encryption"
	"refile/internal/refile"
)

// NewTestCipher returns the production AES-256-CBC cipher.
func NewTestCipher() refile.Cipher {
	return encryption.NewAESCBCCipher()
}

// NewTestKey generates a fresh random key.
func NewTestKey(t *testing.T) refile.Key {
	t.Helper()
	key, err := encryption.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}
