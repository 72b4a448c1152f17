package store

// Credentials carries the secrets a remote store needs. It is loaded once at
// startup and passed to NewStoreFromConfig; stores never read the environment.
type Credentials struct {
	// S3
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// HTTP upload provider
	APIKey       string
	APISecret    string
	UploadPreset string
}

// HasStaticAWS reports whether an explicit S3 key pair is present.
func (c Credentials) HasStaticAWS() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}
