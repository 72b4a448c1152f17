package refile

import "context"

// Blob is one ciphertext waiting to be uploaded. Index ties the upload
// result back to the chunk's position in the source file.
type Blob struct {
	Index int
	Name  string
	Data  []byte
}

// UploadResult is the outcome of uploading one Blob.
type UploadResult struct {
	Index int
	URL   string
	Err   error
}

// Transport moves ciphertext to and from a Store.
type Transport interface {
	// Upload stores data under name, retrying transient failures.
	Upload(ctx context.Context, name string, data []byte) (string, error)

	// Download fetches one blob with a single request.
	Download(ctx context.Context, url string) ([]byte, error)

	// UploadAll uploads blobs concurrently. The result slice is aligned with
	// blobs; a failed upload is reported in its slot and does not stop the others.
	UploadAll(ctx context.Context, blobs []Blob) []UploadResult

	// DownloadAll fetches urls and returns their contents in the same order.
	// The first failure aborts the remaining downloads.
	DownloadAll(ctx context.Context, urls []string) ([][]byte, error)
}
