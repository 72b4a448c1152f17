package refile

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// ChecksumLength is the length of a hex-encoded SHA-256 digest.
const ChecksumLength = 2 * sha256.Size

// Checksum returns the SHA-256 digest of data as a lowercase hex string.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// checksumWriter hashes everything written through it.
type checksumWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w, h: sha256.New()}
}

func (c *checksumWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.h.Write(p[:n])
	c.n += int64(n)
	return n, err
}

func (c *checksumWriter) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}
