package app

import (
	"fmt"
	"os"
	"path/filepath"

	"refile/internal/config"
)

// EnvKeyPath overrides the default key file location.
const EnvKeyPath = "REFILE_KEY_PATH"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - REFILE_CONFIG_PATH: config file location (default: ~/.config/refile.toml)
//   - REFILE_HOME: base directory for refile data (default: ~/.local/share/refile)
//   - REFILE_KEY_PATH: passphrase-protected key file (default: <base_dir>/keys/refile.key)
//
// key_path and store_root are what "config init" writes for the key file
// and the filesystem chunk store.
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig(baseDir)
	keyPath := cfg.Key.Path
	if path := os.Getenv(EnvKeyPath); path != "" {
		keyPath = path
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     cfg.LogDir,
		"key_path":    keyPath,
		"store_root":  cfg.Store.FSRoot,
	}, nil
}

// getConfigPath returns the config file path, checking REFILE_CONFIG_PATH env var first,
// then falling back to the default ~/.config/refile.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("REFILE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "refile.toml"), nil
}

// getBaseDir returns the base directory for refile data, checking REFILE_HOME env var first,
// then falling back to the XDG default ~/.local/share/refile.
func getBaseDir() (string, error) {
	if path := os.Getenv("REFILE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "refile"), nil
}
