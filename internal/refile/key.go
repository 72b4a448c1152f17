package refile

import "fmt"

const (
	// KeySize is the length of an encryption key in bytes (AES-256).
	KeySize = 32

	// IVSize is the length of a per-chunk initialization vector in bytes.
	IVSize = 16
)

// Key is a 256-bit symmetric key. It lives only in memory unless wrapped
// into a key file by the encryption package.
type Key [KeySize]byte

// IV is the initialization vector drawn for a single Encrypt call.
type IV [IVSize]byte

// ParseKey copies raw key material into a Key.
func ParseKey(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", ErrEncryption, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// ParseIV copies raw IV bytes into an IV.
func ParseIV(b []byte) (IV, error) {
	var iv IV
	if len(b) != IVSize {
		return iv, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrEncryption, IVSize, len(b))
	}
	copy(iv[:], b)
	return iv, nil
}
