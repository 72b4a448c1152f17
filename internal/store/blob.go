package store

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Bucket drivers available through blob_url.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"refile/internal/config"
	"refile/internal/refile"
)

// BlobStore stores chunks in any bucket gocloud.dev can open. Manifest URLs
// have the form blob://<store-name>/<key> and resolve against this store's
// bucket, so the same manifest works wherever the bucket URL points.
type BlobStore struct {
	name   string
	prefix string
	bucket *blob.Bucket
}

// NewBlobStore opens the bucket at cfg.BlobURL.
func NewBlobStore(ctx context.Context, cfg config.StoreConfig) (*BlobStore, error) {
	if cfg.BlobURL == "" {
		return nil, fmt.Errorf("blob store requires blob_url to be set")
	}
	bucket, err := blob.OpenBucket(ctx, cfg.BlobURL)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", cfg.BlobURL, err)
	}
	name := cfg.Name
	if name == "" {
		name = "blob"
	}
	return &BlobStore{name: name, prefix: cfg.BlobPrefix, bucket: bucket}, nil
}

// Put writes data to <prefix><name>.
func (b *BlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(b.prefix, name)
	if err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "application/octet-stream"}); err != nil {
		return "", classifyBlobError(fmt.Errorf("writing %s: %w", key, err))
	}
	return (&url.URL{Scheme: "blob", Host: b.name, Path: "/" + key}).String(), nil
}

// Get reads the object a blob:// URL names.
func (b *BlobStore) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %v", refile.ErrPermanent, err)
	}
	if u.Scheme != "blob" || u.Host != b.name {
		return nil, fmt.Errorf("%w: url %s does not belong to store %s", refile.ErrPermanent, rawURL, b.name)
	}
	key := strings.TrimPrefix(u.Path, "/")

	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, classifyBlobError(fmt.Errorf("reading %s: %w", key, err))
	}
	return data, nil
}

// ValidateSetup checks that the bucket is reachable.
func (b *BlobStore) ValidateSetup(ctx context.Context) error {
	ok, err := b.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("bucket not accessible: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket for store %s does not exist", b.name)
	}
	return nil
}

// Close releases the bucket.
func (b *BlobStore) Close() error {
	return b.bucket.Close()
}

func classifyBlobError(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound, gcerrors.PermissionDenied, gcerrors.InvalidArgument,
		gcerrors.FailedPrecondition, gcerrors.Unimplemented:
		return fmt.Errorf("%w: %w", refile.ErrPermanent, err)
	}
	return err
}

// Compile-time check that BlobStore implements refile.Store interface
var _ refile.Store = (*BlobStore)(nil)
