package refile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Service is the orchestration layer that runs the split and reconstruct
// pipelines over a cipher, a transport and the local filesystem.
type Service struct {
	fsmgr     FilesystemManager
	cipher    Cipher
	transport Transport
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(fsmgr FilesystemManager, cipher Cipher, transport Transport, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		fsmgr:     fsmgr,
		cipher:    cipher,
		transport: transport,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// SplitOptions configures a Split call.
type SplitOptions struct {
	ChunkCount      int
	RequireComplete bool
}

// SplitOption is a functional option for Split.
type SplitOption func(*SplitOptions)

// WithChunkCount sets the number of chunks to split into. Zero is rejected
// with ErrInvalidChunkCount; omit the option to get DefaultChunkCount.
func WithChunkCount(n int) SplitOption {
	return func(o *SplitOptions) {
		o.ChunkCount = n
	}
}

// WithRequireComplete makes Split fail with ErrUploadFailed, and write no
// manifest, when any chunk could not be uploaded. By default failed chunks
// are logged and recorded as missing in the manifest.
func WithRequireComplete(require bool) SplitOption {
	return func(o *SplitOptions) {
		o.RequireComplete = require
	}
}

// SplitResult describes a finished split.
type SplitResult struct {
	Manifest     *Manifest
	ManifestPath string
	ChunkSizes   []int
	Missing      []int
}

// Split reads input, encrypts it chunk by chunk with key, uploads the
// chunks and writes the manifest to outputDir/manifest.json.
//
// Validation errors (ErrInputNotFound, ErrEmptyInput, ErrInvalidChunkCount)
// are returned before anything is uploaded. A chunk whose upload fails is
// logged and left out of the manifest unless WithRequireComplete is set.
func (s *Service) Split(ctx context.Context, rawPath string, outputDir string, key Key, options ...SplitOption) (*SplitResult, error) {
	opts := SplitOptions{ChunkCount: DefaultChunkCount}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.ChunkCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, opts.ChunkCount)
	}

	input, err := s.resolveInput(rawPath)
	if err != nil {
		return nil, err
	}

	data, err := s.readInput(input)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, input.String())
	}

	s.logger.Info("split started", "path", input.String(), "size", humanize.Bytes(uint64(len(data))), "chunks", opts.ChunkCount)

	// The digest covers the whole plaintext and is taken before chunking.
	checksum := Checksum(data)

	pieces, err := splitChunks(data, opts.ChunkCount)
	if err != nil {
		return nil, err
	}

	chunks, err := encryptChunks(s.cipher, key, pieces)
	if err != nil {
		return nil, err
	}

	splitID := s.idgen.New()
	blobs := make([]Blob, len(chunks))
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		blobs[i] = Blob{
			Index: c.Index,
			Name:  ChunkName(splitID, c.Index),
			Data:  c.Ciphertext,
		}
		sizes[i] = len(c.Plaintext)
	}

	results := s.transport.UploadAll(ctx, blobs)

	manifest := &Manifest{
		Extension:  input.Extension(),
		Checksum:   checksum,
		ChunkCount: len(chunks),
		Entries:    make([]ManifestEntry, 0, len(chunks)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	for _, r := range results {
		if r.Err != nil {
			s.logger.Error("chunk upload failed", "chunk", r.Index, "error", r.Err)
			manifest.Missing = append(manifest.Missing, r.Index)
			continue
		}
		manifest.Entries = append(manifest.Entries, ManifestEntry{
			URL: r.URL,
			IV:  chunks[r.Index].IV,
		})
	}

	if opts.RequireComplete && len(manifest.Missing) > 0 {
		return nil, fmt.Errorf("%w: %d of %d chunks could not be uploaded", ErrUploadFailed, len(manifest.Missing), len(chunks))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	manifestPath := filepath.Join(outputDir, ManifestFileName)
	if err := WriteManifestFile(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	if len(manifest.Missing) > 0 {
		s.logger.Warn("split finished with missing chunks", "manifest", manifestPath, "missing", manifest.Missing)
	} else {
		s.logger.Info("split complete", "manifest", manifestPath, "chunks", len(chunks))
	}

	return &SplitResult{
		Manifest:     manifest,
		ManifestPath: manifestPath,
		ChunkSizes:   sizes,
		Missing:      manifest.Missing,
	}, nil
}

// resolveInput maps any resolution failure, and directories, to ErrInputNotFound.
func (s *Service) resolveInput(rawPath string) (*Path, error) {
	p, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, rawPath, err)
	}
	if p.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, p.String())
	}
	return p, nil
}

func (s *Service) readInput(p *Path) ([]byte, error) {
	info, err := s.fsmgr.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, p.String(), err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, p.String())
	}

	r, err := s.fsmgr.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, p.String(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

// ChunkName is the store name of chunk index within the split splitID.
func ChunkName(splitID string, index int) string {
	return fmt.Sprintf("%s/chunk_%d", splitID, index)
}
