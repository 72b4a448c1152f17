package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"refile/internal/refile"
)

// AESCBCCipher implements refile.Cipher with AES-256 in CBC mode and PKCS#7
// padding. Ciphertext is always a whole number of blocks; a block-aligned
// plaintext gains one full block of padding.
type AESCBCCipher struct{}

var _ refile.Cipher = (*AESCBCCipher)(nil)

// NewAESCBCCipher creates a new AESCBCCipher.
func NewAESCBCCipher() *AESCBCCipher {
	return &AESCBCCipher{}
}

// Encrypt pads plaintext and encrypts it under a freshly drawn random IV.
func (c *AESCBCCipher) Encrypt(plaintext []byte, key refile.Key) ([]byte, refile.IV, error) {
	var iv refile.IV

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, iv, fmt.Errorf("%w: %v", refile.ErrEncryption, err)
	}

	if _, err := rand.Read(iv[:]); err != nil {
		return nil, iv, fmt.Errorf("%w: generating iv: %v", refile.ErrEncryption, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// Decrypt decrypts ciphertext and strips its padding.
func (c *AESCBCCipher) Decrypt(ciphertext []byte, key refile.Key, iv refile.IV) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", refile.ErrEncryption, err)
	}

	// CryptBlocks panics on partial blocks, so reject them here.
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			refile.ErrDecryption, len(ciphertext), aes.BlockSize)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", refile.ErrDecryption, err)
	}
	return unpadded, nil
}

// GenerateKey draws a new random 256-bit key.
func GenerateKey() (refile.Key, error) {
	var k refile.Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("%w: generating key: %v", refile.ErrEncryption, err)
	}
	return k, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
