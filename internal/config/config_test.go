package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/refile",
		LogDir:  "/home/user/.local/share/refile/log",
		Key: KeyConfig{
			Cipher: "aes-256-cbc",
			Path:   "/home/user/.local/share/refile/keys/refile.key",
		},
		Store: StoreConfig{
			Type:        "s3",
			Name:        "remote",
			S3Bucket:    "chunks",
			S3Prefix:    "refile/",
			S3Region:    "eu-west-1",
			S3Endpoint:  "http://localhost:9000",
			S3PathStyle: true,
		},
		Transfer: TransferConfig{UploadWorkers: 8, DownloadWorkers: 2, RequireComplete: true},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 250 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			MaxElapsedTime:  time.Minute,
			Multiplier:      1.5,
			Jitter:          0.2,
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Key != original.Key {
		t.Errorf("Key = %+v, want %+v", got.Key, original.Key)
	}
	if got.Store != original.Store {
		t.Errorf("Store = %+v, want %+v", got.Store, original.Store)
	}
	if got.Transfer != original.Transfer {
		t.Errorf("Transfer = %+v, want %+v", got.Transfer, original.Transfer)
	}
	if got.Retry != original.Retry {
		t.Errorf("Retry = %+v, want %+v", got.Retry, original.Retry)
	}
}

func TestManager_Read_DurationStrings(t *testing.T) {
	input := `
log_dir = "/tmp/log"

[store]
type = "http"
http_cloud_name = "demo"
http_upload_url = "https://api.example.com"
http_timeout = "45s"

[retry]
max_attempts = 7
initial_interval = "100ms"
max_interval = "10s"
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if cfg.Store.HTTPCloudName != "demo" {
		t.Errorf("Store.HTTPCloudName = %q, want demo", cfg.Store.HTTPCloudName)
	}
	if cfg.Store.HTTPTimeout != 45*time.Second {
		t.Errorf("Store.HTTPTimeout = %v, want 45s", cfg.Store.HTTPTimeout)
	}
	if cfg.Retry.MaxAttempts != 7 {
		t.Errorf("Retry.MaxAttempts = %d, want 7", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialInterval != 100*time.Millisecond {
		t.Errorf("Retry.InitialInterval = %v, want 100ms", cfg.Retry.InitialInterval)
	}
	if cfg.Retry.MaxInterval != 10*time.Second {
		t.Errorf("Retry.MaxInterval = %v, want 10s", cfg.Retry.MaxInterval)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/refile")

	if cfg.BaseDir != "/data/refile" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/refile")
	}
	if cfg.LogDir != "/data/refile/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/refile/log")
	}
	if cfg.Key.Path != "/data/refile/keys/refile.key" {
		t.Errorf("Key.Path = %q, want %q", cfg.Key.Path, "/data/refile/keys/refile.key")
	}
	if cfg.Store.Type != "filesystem" {
		t.Errorf("Store.Type = %q, want %q", cfg.Store.Type, "filesystem")
	}
	if cfg.Store.FSRoot != "/data/refile/store" {
		t.Errorf("Store.FSRoot = %q, want %q", cfg.Store.FSRoot, "/data/refile/store")
	}
	if cfg.Transfer.UploadWorkers != 4 {
		t.Errorf("Transfer.UploadWorkers = %d, want 4", cfg.Transfer.UploadWorkers)
	}
	if cfg.Retry != DefaultRetryConfig() {
		t.Errorf("Retry = %+v, want defaults", cfg.Retry)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "refile.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "refile.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "refile.toml")
		cfg := NewConfig(dir)
		cfg.Store = StoreConfig{Type: "memory", Name: "scratch"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Store.Type != "memory" {
			t.Errorf("Store.Type = %q, want %q", got.Store.Type, "memory")
		}
		if got.Retry.InitialInterval != 500*time.Millisecond {
			t.Errorf("Retry.InitialInterval = %v, want 500ms", got.Retry.InitialInterval)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/refile.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
