package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"refile/internal/refile"
	"refile/internal/store"
)

// NewTestStore creates a new in-memory store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore("test-store")
}

// FlakyStore wraps a Store and injects failures into Put, keyed by blob name.
// It also records the peak number of concurrent Put calls.
type FlakyStore struct {
	refile.Store

	mu        sync.Mutex
	transient map[string]int // name -> failures left before success
	permanent map[string]bool
	delays    map[string]time.Duration
	attempts  map[string]int

	inFlight atomic.Int32
	peak     atomic.Int32
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner refile.Store) *FlakyStore {
	return &FlakyStore{
		Store:     inner,
		transient: make(map[string]int),
		permanent: make(map[string]bool),
		delays:    make(map[string]time.Duration),
		attempts:  make(map[string]int),
	}
}

// FailTimes makes the next n Puts of name fail with a retryable error.
func (f *FlakyStore) FailTimes(name string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transient[name] = n
}

// FailAlways makes every Put of name fail with a permanent error.
func (f *FlakyStore) FailAlways(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permanent[name] = true
}

// Delay makes every Put of name sleep for d first.
func (f *FlakyStore) Delay(name string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[name] = d
}

// Attempts returns how many times Put was called for name.
func (f *FlakyStore) Attempts(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[name]
}

// PeakConcurrency returns the highest number of overlapping Put calls seen.
func (f *FlakyStore) PeakConcurrency() int {
	return int(f.peak.Load())
}

func (f *FlakyStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.attempts[name]++
	delay := f.delays[name]
	permanent := f.permanent[name]
	transient := f.transient[name] > 0
	if transient {
		f.transient[name]--
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if permanent {
		return "", fmt.Errorf("%w: rejected %s", refile.ErrPermanent, name)
	}
	if transient {
		return "", fmt.Errorf("temporary failure storing %s", name)
	}
	return f.Store.Put(ctx, name, data)
}

// Compile-time check
var _ refile.Store = (*FlakyStore)(nil)
