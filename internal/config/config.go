package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for refile.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Key      KeyConfig      `toml:"key"`
	Store    StoreConfig    `toml:"store"`
	Transfer TransferConfig `toml:"transfer"`
	Retry    RetryConfig    `toml:"retry"`
}

// KeyConfig selects the cipher and where the passphrase-protected key lives.
type KeyConfig struct {
	Cipher string `toml:"cipher"` // "aes-256-cbc" (default)
	Path   string `toml:"path"`

	// ScryptWorkFactor is the log2 scrypt cost for new key files; zero uses age's default.
	ScryptWorkFactor int `toml:"scrypt_work_factor,omitempty"`
}

// StoreConfig represents configuration for a blob store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "s3", "blob" or "http"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`   // for S3-compatible services such as minio
	S3PathStyle bool   `toml:"s3_path_style,omitempty"` // required by most S3-compatible services

	// Blob-specific fields (only used when Type == "blob"), a gocloud.dev bucket URL
	// such as "file:///var/refile" or "s3://bucket?region=us-east-1".
	BlobURL    string `toml:"blob_url,omitempty"`
	BlobPrefix string `toml:"blob_prefix,omitempty"`

	// HTTP-specific fields (only used when Type == "http"). HTTPUploadURL overrides
	// the media API prefix, e.g. for a self-hosted gateway.
	HTTPCloudName string        `toml:"http_cloud_name,omitempty"`
	HTTPUploadURL string        `toml:"http_upload_url,omitempty"`
	HTTPTimeout   time.Duration `toml:"http_timeout,omitempty"`
}

// TransferConfig controls upload/download parallelism and the partial-failure policy.
type TransferConfig struct {
	UploadWorkers   int  `toml:"upload_workers"`   // concurrent chunk uploads; defaults to 4
	DownloadWorkers int  `toml:"download_workers"` // concurrent chunk downloads; defaults to 1
	RequireComplete bool `toml:"require_complete"` // fail the split instead of recording missing chunks
}

// RetryConfig is the exponential backoff policy applied to uploads.
type RetryConfig struct {
	MaxAttempts     int           `toml:"max_attempts"`
	InitialInterval time.Duration `toml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
	MaxElapsedTime  time.Duration `toml:"max_elapsed_time"`
	Multiplier      float64       `toml:"multiplier"`
	Jitter          float64       `toml:"jitter"`
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		Multiplier:      2,
		Jitter:          0.5,
	}
}

// NewConfig creates a new Config rooted at baseDir with a filesystem store
// and default key path, transfer settings and retry policy.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Key: KeyConfig{
			Cipher: "aes-256-cbc",
			Path:   filepath.Join(baseDir, "keys", "refile.key"),
		},
		Store: StoreConfig{
			Type:   "filesystem",
			Name:   "local",
			FSRoot: filepath.Join(baseDir, "store"),
		},
		Transfer: TransferConfig{
			UploadWorkers:   4,
			DownloadWorkers: 1,
		},
		Retry: DefaultRetryConfig(),
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
