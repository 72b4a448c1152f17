package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"refile/internal/refile"
)

func TestMemoryStore_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore("test")

	data := []byte("ciphertext")
	url, err := s.Put(ctx, "run-1/chunk_0", data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "mem://test/run-1/chunk_0" {
		t.Errorf("Put() url = %q, want %q", url, "mem://test/run-1/chunk_0")
	}

	// Mutating the caller's slice must not affect the stored copy.
	data[0] = 'X'

	got, err := s.Get(ctx, url)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte("ciphertext")) {
		t.Errorf("Get() = %q, want %q", got, "ciphertext")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_Get_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore("test")

	tests := []struct {
		name string
		url  string
	}{
		{"unknown blob", "mem://test/missing"},
		{"other store", "mem://other/chunk_0"},
		{"wrong scheme", "file:///tmp/chunk_0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Get(ctx, tt.url)
			if !errors.Is(err, refile.ErrPermanent) {
				t.Errorf("Get(%q) error = %v, want ErrPermanent", tt.url, err)
			}
		})
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore("")

	url, err := s.Put(ctx, "a", []byte("one"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Replace(url, []byte("two")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	got, _ := s.Get(ctx, url)
	if string(got) != "two" {
		t.Errorf("Get() after Replace = %q, want %q", got, "two")
	}
	if err := s.Replace("mem://memory/nope", nil); err == nil {
		t.Error("Replace() of missing blob expected error")
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore("test")
	if _, err := s.Put(ctx, "a", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
}
