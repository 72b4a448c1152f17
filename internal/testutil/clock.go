package testutil

import (
	"fmt"
	"sync"
	"time"

	"refile/internal/refile"
)

// FixedTime is the manifest created_at every split made with FixedClock records.
var FixedTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// StubClock returns a fixed time until advanced. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to FixedTime.
func FixedClock() *StubClock {
	return NewStubClock(FixedTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential split IDs: "split-1", "split-2", etc.
// The n-th split a Service makes with it stores chunk i under StubChunkName(n, i).
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return stubSplitID(g.counter)
}

// Issued returns how many split IDs have been handed out.
func (g *StubIDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// StubChunkName is the store name of chunk index in the n-th split.
func StubChunkName(split, index int) string {
	return refile.ChunkName(stubSplitID(split), index)
}

func stubSplitID(n int) string {
	return fmt.Sprintf("split-%d", n)
}
