package refile

import "context"

// Store provides an interface for remote blob storage backends.
// A blob is written once under a caller-chosen name and later fetched by the
// URL the store returned for it. URLs are opaque to callers.
type Store interface {
	// Put stores data under name and returns the URL that retrieves it.
	// Errors that retrying cannot fix must wrap ErrPermanent.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Get retrieves the blob previously stored at url.
	Get(ctx context.Context, url string) ([]byte, error)

	// ValidateSetup verifies that the store is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
