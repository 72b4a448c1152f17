package app

import (
	"os"

	"refile/internal/store"
)

// Environment variables read by LoadCredentials and Passphrase.
const (
	EnvAccessKeyID     = "REFILE_ACCESS_KEY_ID"
	EnvSecretAccessKey = "REFILE_SECRET_ACCESS_KEY"
	EnvSessionToken    = "REFILE_SESSION_TOKEN"
	EnvAPIKey          = "REFILE_API_KEY"
	EnvAPISecret       = "REFILE_API_SECRET"
	EnvUploadPreset    = "REFILE_UPLOAD_PRESET"
	EnvPassphrase      = "REFILE_PASSPHRASE"
)

// LoadCredentials reads store credentials from the environment. Unset
// variables leave their field empty; the store decides what it requires.
func LoadCredentials() store.Credentials {
	return store.Credentials{
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
		SessionToken:    os.Getenv(EnvSessionToken),
		APIKey:          os.Getenv(EnvAPIKey),
		APISecret:       os.Getenv(EnvAPISecret),
		UploadPreset:    os.Getenv(EnvUploadPreset),
	}
}

// PassphraseFromEnv returns the key file passphrase from REFILE_PASSPHRASE.
func PassphraseFromEnv() (string, bool) {
	return os.LookupEnv(EnvPassphrase)
}
