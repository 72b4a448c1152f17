package refile

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ManifestFileName is the well-known name of the manifest in a split's output directory.
	ManifestFileName = "manifest.json"

	// DefaultExtension is recorded when the input file name has no extension.
	DefaultExtension = "txt"

	// ReconstructedBaseName is the output file name, before the recorded extension.
	ReconstructedBaseName = "reconstructed_file"
)

// ManifestEntry ties one uploaded chunk to the IV needed to decrypt it.
// Its position in Manifest.Entries is the chunk's position in the original file.
type ManifestEntry struct {
	URL string `json:"url"`
	IV  IV     `json:"iv"`
}

// Manifest is the persisted record needed to reconstruct a split file.
// Checksum is the digest of the original plaintext, never of ciphertext.
// ChunkCount is the number of chunks produced at split time; Missing lists
// the ordinals whose upload failed and which therefore have no entry.
type Manifest struct {
	Extension  string          `json:"extension"`
	Checksum   string          `json:"checksum"`
	ChunkCount int             `json:"chunk_count"`
	Entries    []ManifestEntry `json:"chunks"`
	Missing    []int           `json:"missing,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Complete reports whether every chunk produced at split time has an entry.
func (m *Manifest) Complete() bool {
	return len(m.Missing) == 0 && len(m.Entries) == m.ChunkCount
}

// URLs returns the entry URLs in manifest order.
func (m *Manifest) URLs() []string {
	urls := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		urls[i] = e.URL
	}
	return urls
}

// MarshalText encodes the IV as standard base64.
func (iv IV) MarshalText() ([]byte, error) {
	buf := make([]byte, base64.StdEncoding.EncodedLen(IVSize))
	base64.StdEncoding.Encode(buf, iv[:])
	return buf, nil
}

// UnmarshalText decodes a base64 IV and rejects anything but IVSize bytes.
func (iv *IV) UnmarshalText(text []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decoding iv: %w", err)
	}
	parsed, err := ParseIV(raw)
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

// manifestDoc mirrors Manifest with pointer fields so absent keys are
// distinguishable from empty values while decoding.
type manifestDoc struct {
	Extension  *string     `json:"extension"`
	Checksum   *string     `json:"checksum"`
	ChunkCount *int        `json:"chunk_count"`
	Entries    []*entryDoc `json:"chunks"`
	Missing    []int       `json:"missing"`
	CreatedAt  time.Time   `json:"created_at"`
}

type entryDoc struct {
	URL *string `json:"url"`
	IV  *string `json:"iv"`
}

// WriteManifest encodes m as indented JSON.
func WriteManifest(w io.Writer, m *Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes and validates a manifest. Every failure wraps ErrManifestCorrupt.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var doc manifestDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestCorrupt, err)
	}

	if doc.Extension == nil || *doc.Extension == "" {
		return nil, fmt.Errorf("%w: missing extension", ErrManifestCorrupt)
	}
	if !validExtension(*doc.Extension) {
		return nil, fmt.Errorf("%w: extension %q is not a plain file suffix", ErrManifestCorrupt, *doc.Extension)
	}
	if doc.Checksum == nil {
		return nil, fmt.Errorf("%w: missing checksum", ErrManifestCorrupt)
	}
	if !validChecksum(*doc.Checksum) {
		return nil, fmt.Errorf("%w: malformed checksum %q", ErrManifestCorrupt, *doc.Checksum)
	}
	if doc.Entries == nil {
		return nil, fmt.Errorf("%w: missing chunks", ErrManifestCorrupt)
	}

	m := &Manifest{
		Extension: *doc.Extension,
		Checksum:  *doc.Checksum,
		Entries:   make([]ManifestEntry, len(doc.Entries)),
		Missing:   doc.Missing,
		CreatedAt: doc.CreatedAt,
	}

	for i, e := range doc.Entries {
		if e == nil || e.URL == nil || *e.URL == "" {
			return nil, fmt.Errorf("%w: chunk %d has no url", ErrManifestCorrupt, i)
		}
		if e.IV == nil {
			return nil, fmt.Errorf("%w: chunk %d has no iv", ErrManifestCorrupt, i)
		}
		var iv IV
		if err := iv.UnmarshalText([]byte(*e.IV)); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrManifestCorrupt, i, err)
		}
		m.Entries[i] = ManifestEntry{URL: *e.URL, IV: iv}
	}

	m.ChunkCount = len(m.Entries)
	if doc.ChunkCount != nil {
		m.ChunkCount = *doc.ChunkCount
	}
	if m.ChunkCount <= 0 {
		return nil, fmt.Errorf("%w: no chunks", ErrManifestCorrupt)
	}
	if len(m.Entries) > m.ChunkCount {
		return nil, fmt.Errorf("%w: %d chunks exceed chunk_count %d", ErrManifestCorrupt, len(m.Entries), m.ChunkCount)
	}
	for _, idx := range m.Missing {
		if idx < 0 || idx >= m.ChunkCount {
			return nil, fmt.Errorf("%w: missing ordinal %d out of range", ErrManifestCorrupt, idx)
		}
	}

	return m, nil
}

// validExtension reports whether ext keeps the reconstructed file name a
// single local path element.
func validExtension(ext string) bool {
	if strings.ContainsAny(ext, `/\`) || strings.Contains(ext, "..") {
		return false
	}
	return filepath.IsLocal(ReconstructedBaseName + "." + ext)
}

func validChecksum(s string) bool {
	if len(s) != ChecksumLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// WriteManifestFile writes m to path using atomic write (temp file + rename).
func WriteManifestFile(path string, m *Manifest) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := WriteManifest(tmpFile, m); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming manifest into place: %w", err)
	}

	success = true
	return nil
}

// ReadManifestFile opens and decodes the manifest at path.
func ReadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	m, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return m, nil
}
