package encryption

import (
	"fmt"

	"refile/internal/config"
	"refile/internal/refile"
)

// NewCipherFromConfig creates a Cipher based on the configuration type.
func NewCipherFromConfig(cfg config.KeyConfig) (refile.Cipher, error) {
	switch cfg.Cipher {
	case "aes-256-cbc", "":
		return NewAESCBCCipher(), nil
	default:
		return nil, fmt.Errorf("unknown cipher: %q", cfg.Cipher)
	}
}
