package refile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// ReconstructResult describes a verified reconstruction.
type ReconstructResult struct {
	Path     string
	Checksum string
	Size     int64
}

// Reconstruct reads the manifest at manifestPath, downloads and decrypts
// every chunk in manifest order and writes the concatenation to
// outputDir/reconstructed_file.<extension>.
//
// The file only appears at its final path once its digest matches the
// manifest checksum; on any failure the partial output is removed.
func (s *Service) Reconstruct(ctx context.Context, manifestPath string, outputDir string, key Key) (*ReconstructResult, error) {
	manifest, err := ReadManifestFile(manifestPath)
	if err != nil {
		return nil, err
	}
	if !manifest.Complete() {
		return nil, fmt.Errorf("%w: %d of %d chunks missing %v",
			ErrIncompleteManifest, manifest.ChunkCount-len(manifest.Entries), manifest.ChunkCount, manifest.Missing)
	}

	s.logger.Info("reconstruct started", "manifest", manifestPath, "chunks", len(manifest.Entries))

	ciphertexts, err := s.transport.DownloadAll(ctx, manifest.URLs())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	outPath := filepath.Join(outputDir, ReconstructedBaseName+"."+manifest.Extension)

	tmpFile, err := os.CreateTemp(outputDir, ".reconstruct-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp output: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	cw := newChecksumWriter(tmpFile)
	for i, entry := range manifest.Entries {
		plaintext, err := s.cipher.Decrypt(ciphertexts[i], key, entry.IV)
		if err != nil {
			tmpFile.Close()
			return nil, fmt.Errorf("decrypting chunk %d from %s: %w", i, entry.URL, err)
		}
		if _, err := cw.Write(plaintext); err != nil {
			tmpFile.Close()
			return nil, fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("closing output: %w", err)
	}

	actual := cw.Sum()
	if actual != manifest.Checksum {
		return nil, &ChecksumMismatchError{Expected: manifest.Checksum, Actual: actual}
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("renaming output into place: %w", err)
	}
	success = true

	s.logger.Info("reconstruct complete", "path", outPath, "size", humanize.Bytes(uint64(cw.n)))
	return &ReconstructResult{Path: outPath, Checksum: actual, Size: cw.n}, nil
}
