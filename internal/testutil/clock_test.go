package testutil

import (
	"testing"
	"time"
)

func TestStubIDGenerator(t *testing.T) {
	g := NewStubIDGenerator()
	for i, want := range []string{"split-1", "split-2", "split-3"} {
		if got := g.New(); got != want {
			t.Errorf("New() #%d = %q, want %q", i, got, want)
		}
	}
	if g.Issued() != 3 {
		t.Errorf("Issued() = %d, want 3", g.Issued())
	}
	if got := StubChunkName(2, 7); got != "split-2/chunk_7" {
		t.Errorf("StubChunkName(2, 7) = %q", got)
	}
}

func TestStubClock(t *testing.T) {
	c := FixedClock()
	if !c.Now().Equal(FixedTime) {
		t.Errorf("Now() = %v, want %v", c.Now(), FixedTime)
	}
	c.Advance(90 * time.Second)
	if want := FixedTime.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}
