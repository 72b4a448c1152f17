package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"refile/internal/refile"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It keeps every blob in a map, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	name  string
	blobs map[string][]byte // name -> ciphertext
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with the given name.
func NewMemoryStore(name string) *MemoryStore {
	if name == "" {
		name = "memory"
	}
	return &MemoryStore{
		name:  name,
		blobs: make(map[string][]byte),
	}
}

// Put stores a copy of data under name.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte(nil), data...)
	return (&url.URL{Scheme: "mem", Host: m.name, Path: "/" + name}).String(), nil
}

// Get returns a copy of the blob at rawURL.
func (m *MemoryStore) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := m.nameFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: blob not found: %s", refile.ErrPermanent, rawURL)
	}
	return append([]byte(nil), data...), nil
}

// Replace overwrites the blob at rawURL. Tests use it to simulate corruption
// in the store.
func (m *MemoryStore) Replace(rawURL string, data []byte) error {
	name, err := m.nameFromURL(rawURL)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[name]; !ok {
		return fmt.Errorf("blob not found: %s", rawURL)
	}
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// ValidateSetup always succeeds for in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) nameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing url: %v", refile.ErrPermanent, err)
	}
	if u.Scheme != "mem" || u.Host != m.name {
		return "", fmt.Errorf("%w: url %s does not belong to memory store %q", refile.ErrPermanent, rawURL, m.name)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}

// Compile-time check that MemoryStore implements refile.Store interface
var _ refile.Store = (*MemoryStore)(nil)
