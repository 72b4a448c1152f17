package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"refile/internal/refile"
)

// FileSystemStore is a filesystem-based implementation of the Store interface.
// It stores blobs as files in a directory structure:
//
//	<root>/
//	  chunks/
//	    <split-id>/
//	      chunk_<n>
type FileSystemStore struct {
	name      string
	root      string
	chunksDir string
}

// NewFileSystemStore creates a new filesystem store rooted at the given path.
func NewFileSystemStore(name, root string) (*FileSystemStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving store root: %w", err)
	}
	chunksDir := filepath.Join(absRoot, "chunks")

	if err := os.MkdirAll(chunksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunks directory: %w", err)
	}

	return &FileSystemStore{
		name:      name,
		root:      absRoot,
		chunksDir: chunksDir,
	}, nil
}

// Put writes data to <root>/chunks/<name> and returns its file:// URL.
func (s *FileSystemStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destPath := filepath.Join(s.chunksDir, filepath.FromSlash(name))
	if !s.contains(destPath) {
		return "", fmt.Errorf("%w: name %q escapes store root", refile.ErrPermanent, name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create chunk directory: %w", err)
	}
	if err := s.writeFile(destPath, data); err != nil {
		return "", err
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(destPath)}).String(), nil
}

// Get reads the blob at a file:// URL inside the store root.
func (s *FileSystemStore) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %v", refile.ErrPermanent, err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: unsupported url scheme %q", refile.ErrPermanent, u.Scheme)
	}

	srcPath := filepath.Clean(filepath.FromSlash(u.Path))
	if !s.contains(srcPath) {
		return nil, fmt.Errorf("%w: %s is outside store root %s", refile.ErrPermanent, srcPath, s.root)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: blob not found: %s", refile.ErrPermanent, rawURL)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store root is not a directory: %s", s.root)
	}

	info, err = os.Stat(s.chunksDir)
	if err != nil {
		return fmt.Errorf("store directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store path is not a directory: %s", s.chunksDir)
	}

	return nil
}

func (s *FileSystemStore) contains(path string) bool {
	rel, err := filepath.Rel(s.chunksDir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// writeFile writes data to the specified path using atomic write (temp file + rename).
func (s *FileSystemStore) writeFile(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements refile.Store interface
var _ refile.Store = (*FileSystemStore)(nil)
