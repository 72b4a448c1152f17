package encryption

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"refile/internal/config"
	"refile/internal/refile"
)

// KeyFile stores a refile.Key on disk encrypted with the user's passphrase
// using age's scrypt-based passphrase encryption. It is how a key outlives
// the run that generated it.
type KeyFile struct {
	path string

	// workFactor is the scrypt log2 work factor; zero keeps age's default.
	workFactor int

	encrypt func(dst io.Writer, recipients ...age.Recipient) (io.WriteCloser, error)
}

// NewKeyFile creates a KeyFile from configuration.
func NewKeyFile(cfg config.KeyConfig) *KeyFile {
	return &KeyFile{path: cfg.Path, workFactor: cfg.ScryptWorkFactor, encrypt: age.Encrypt}
}

// Path returns the location of the key file.
func (k *KeyFile) Path() string {
	return k.path
}

// Exists returns true if the key file is present.
func (k *KeyFile) Exists() bool {
	_, err := os.Stat(k.path)
	return err == nil
}

// Create generates a new key, encrypts it with passphrase and writes it.
// It refuses to overwrite an existing key file, since that would orphan
// every chunk encrypted under the old key.
func (k *KeyFile) Create(passphrase string) (refile.Key, error) {
	var key refile.Key

	if k.Exists() {
		return key, fmt.Errorf("key file already exists at %s", k.path)
	}

	key, err := GenerateKey()
	if err != nil {
		return key, err
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return key, fmt.Errorf("creating key directory: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return key, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if k.workFactor > 0 {
		recipient.SetWorkFactor(k.workFactor)
	}

	f, err := os.OpenFile(k.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return key, fmt.Errorf("creating key file: %w", err)
	}

	// Never leave a partial key file behind.
	if err := k.write(f, recipient, key); err != nil {
		f.Close()
		os.Remove(k.path)
		return refile.Key{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(k.path)
		return refile.Key{}, fmt.Errorf("closing key file: %w", err)
	}

	return key, nil
}

func (k *KeyFile) write(f *os.File, recipient age.Recipient, key refile.Key) error {
	w, err := k.encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.WriteString(w, base64.StdEncoding.EncodeToString(key[:])+"\n"); err != nil {
		return fmt.Errorf("writing encrypted key: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted key: %w", err)
	}

	return f.Sync()
}

// Unlock decrypts the key file with passphrase.
// Returns an error if the passphrase is incorrect.
func (k *KeyFile) Unlock(passphrase string) (refile.Key, error) {
	var key refile.Key

	data, err := os.ReadFile(k.path)
	if err != nil {
		return key, fmt.Errorf("reading key file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return key, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return key, fmt.Errorf("decrypting key file: %w", err)
	}

	encoded, err := io.ReadAll(r)
	if err != nil {
		return key, fmt.Errorf("reading decrypted key: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return key, fmt.Errorf("decoding key: %w", err)
	}

	return refile.ParseKey(raw)
}
