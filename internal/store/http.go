package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"refile/internal/config"
	"refile/internal/refile"
)

const (
	defaultHTTPTimeout = 60 * time.Second

	// rawResourceType stores chunks as opaque files rather than media.
	rawResourceType = "raw"
)

// HTTPStore uploads chunks to a Cloudinary-compatible media API and downloads
// them back from the secure URL the provider returns.
type HTTPStore struct {
	name      string
	cloudName string
	apiPrefix string
	creds     Credentials
	timeout   time.Duration
	client    *http.Client
	transport http.RoundTripper
}

// NewHTTPStore creates an HTTP store for the cloud named by cfg.HTTPCloudName.
// cfg.HTTPUploadURL, when set, replaces the provider's default API prefix.
func NewHTTPStore(cfg config.StoreConfig, creds Credentials) (*HTTPStore, error) {
	if cfg.HTTPCloudName == "" {
		return nil, fmt.Errorf("http store requires http_cloud_name to be set")
	}
	if cfg.HTTPUploadURL != "" {
		if _, err := url.ParseRequestURI(cfg.HTTPUploadURL); err != nil {
			return nil, fmt.Errorf("invalid http_upload_url: %w", err)
		}
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPStore{
		name:      cfg.Name,
		cloudName: cfg.HTTPCloudName,
		apiPrefix: cfg.HTTPUploadURL,
		creds:     creds,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		transport: http.DefaultTransport,
	}, nil
}

// responseRecorder keeps the status and body of the last upload response so
// Put can classify failures by HTTP status.
type responseRecorder struct {
	base   http.RoundTripper
	status int
	body   []byte
}

func (r *responseRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	r.status = resp.StatusCode
	r.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// media builds a per-request API client so concurrent uploads never share a recorder.
func (h *HTTPStore) media(rec *responseRecorder) (*cloudinary.Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(h.cloudName, h.creds.APIKey, h.creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: configuring media api: %v", refile.ErrPermanent, err)
	}
	if h.apiPrefix != "" {
		cld.Upload.Config.API.UploadPrefix = h.apiPrefix
	}
	cld.Upload.Client.Timeout = h.timeout
	cld.Upload.Client.Transport = rec
	return cld, nil
}

// Put uploads data as a raw asset whose public ID is name and returns the
// provider's secure_url. Without an API key the upload goes through the
// unsigned preset.
func (h *HTTPStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	rec := &responseRecorder{base: h.transport}
	cld, err := h.media(rec)
	if err != nil {
		return "", err
	}

	params := uploader.UploadParams{
		PublicID:     name,
		ResourceType: rawResourceType,
	}
	var res *uploader.UploadResult
	if h.creds.APIKey != "" {
		params.UploadPreset = h.creds.UploadPreset
		res, err = cld.Upload.Upload(ctx, bytes.NewReader(data), params)
	} else {
		res, err = cld.Upload.UnsignedUpload(ctx, bytes.NewReader(data), h.creds.UploadPreset, params)
	}
	if rec.status != 0 {
		if serr := statusError("upload "+name, rec.status, rec.body); serr != nil {
			return "", serr
		}
	}
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if res == nil || res.SecureURL == "" {
		return "", fmt.Errorf("%w: upload response for %s has no secure_url", refile.ErrPermanent, name)
	}
	return res.SecureURL, nil
}

// Get downloads the content at a secure URL.
func (h *HTTPStore) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building download request: %v", refile.ErrPermanent, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if err := statusError("download "+rawURL, resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateSetup checks that credentials needed for signed uploads are present.
func (h *HTTPStore) ValidateSetup(ctx context.Context) error {
	if h.creds.APIKey != "" && h.creds.APISecret == "" {
		return fmt.Errorf("http store %s has an api key but no api secret", h.name)
	}
	if h.creds.APIKey == "" && h.creds.UploadPreset == "" {
		return fmt.Errorf("http store %s needs an api key or an upload preset", h.name)
	}
	return nil
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func statusError(op string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg := string(body)
	var out apiErrorBody
	if json.Unmarshal(body, &out) == nil && out.Error != nil {
		msg = out.Error.Message
	}
	err := fmt.Errorf("%s: status %d: %s", op, code, msg)
	if isPermanentStatus(code) {
		return fmt.Errorf("%w: %w", refile.ErrPermanent, err)
	}
	return err
}

// Compile-time check that HTTPStore implements refile.Store interface
var _ refile.Store = (*HTTPStore)(nil)
