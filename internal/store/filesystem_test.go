package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refile/internal/refile"
)

func TestNewFileSystemStore(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "store")

		s, err := NewFileSystemStore("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "chunks")); err != nil {
			t.Errorf("chunks directory not created: %v", err)
		}
		if s.name != "test" {
			t.Errorf("name = %q, want %q", s.name, "test")
		}
		if err := s.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemStore("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
	})
}

func TestFileSystemStore_PutGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileSystemStore("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	url, err := s.Put(ctx, "run-1/chunk_3", []byte("hello world"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("Put() url = %q, want file:// prefix", url)
	}

	onDisk, err := os.ReadFile(filepath.Join(root, "chunks", "run-1", "chunk_3"))
	if err != nil {
		t.Fatalf("chunk not written: %v", err)
	}
	if string(onDisk) != "hello world" {
		t.Errorf("file content = %q, want %q", onDisk, "hello world")
	}

	got, err := s.Get(ctx, url)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Errorf("Get() = %q, want %q", got, "hello world")
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Join(root, "chunks", "run-1"))
	if len(entries) != 1 {
		t.Errorf("chunk dir has %d entries, want 1", len(entries))
	}
}

func TestFileSystemStore_Errors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileSystemStore("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	t.Run("put outside root", func(t *testing.T) {
		_, err := s.Put(ctx, "../../escape", []byte("x"))
		if !errors.Is(err, refile.ErrPermanent) {
			t.Errorf("Put() error = %v, want ErrPermanent", err)
		}
	})

	tests := []struct {
		name string
		url  string
	}{
		{"missing blob", "file://" + filepath.ToSlash(filepath.Join(root, "chunks", "nope"))},
		{"outside root", "file:///etc/passwd"},
		{"wrong scheme", "mem://test/chunk_0"},
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
