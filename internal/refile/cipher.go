package refile

// Cipher encrypts and decrypts opaque blocks with a caller-supplied key.
// Every Encrypt call draws a fresh random IV; the IV is returned to the
// caller and must be supplied again to Decrypt.
type Cipher interface {
	// Encrypt returns the ciphertext of plaintext and the IV used to produce it.
	Encrypt(plaintext []byte, key Key) ([]byte, IV, error)

	// Decrypt reverses Encrypt. It returns an error wrapping ErrDecryption
	// when the padding is invalid, which is how a wrong key or corrupted
	// ciphertext usually surfaces.
	Decrypt(ciphertext []byte, key Key, iv IV) ([]byte, error)
}
