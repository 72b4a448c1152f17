package refile

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by split and reconstruct. Callers match them with errors.Is.
var (
	ErrInputNotFound     = errors.New("input not found")
	ErrEmptyInput        = errors.New("input is empty")
	ErrInvalidChunkCount = errors.New("chunk count must be greater than 0")
	ErrEncryption        = errors.New("encryption failed")
	ErrDecryption        = errors.New("decryption failed")
	ErrUploadFailed      = errors.New("upload failed")
	ErrDownloadFailed    = errors.New("download failed")
	ErrManifestCorrupt   = errors.New("manifest corrupt")
	ErrChecksumMismatch  = errors.New("checksum mismatch")

	// ErrIncompleteManifest is returned when a manifest records chunks that
	// never made it to the store.
	ErrIncompleteManifest = errors.New("manifest incomplete")

	// ErrPermanent marks a store failure that retrying cannot fix
	// (bad credentials, malformed request, unknown object).
	ErrPermanent = errors.New("permanent failure")
)

// ChecksumMismatchError reports a reconstructed file whose digest differs
// from the one recorded in the manifest.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: original %s, reconstructed %s", e.Expected, e.Actual)
}

// Is lets errors.Is(err, ErrChecksumMismatch) match.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
