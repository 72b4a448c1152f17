package store

import (
	"context"
	"fmt"

	"refile/internal/config"
	"refile/internal/refile"
)

// NewStoreFromConfig creates a Store implementation based on the store config type.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig, creds Credentials) (refile.Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.Name, cfg.FSRoot)
	case "s3":
		return NewS3Store(ctx, cfg, creds)
	case "blob":
		return NewBlobStore(ctx, cfg)
	case "http":
		return NewHTTPStore(cfg, creds)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
