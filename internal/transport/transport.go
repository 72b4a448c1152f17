package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"refile/internal/config"
	"refile/internal/refile"
)

// Options configures a Transport.
type Options struct {
	// UploadWorkers bounds concurrent uploads in UploadAll. Default: 4
	UploadWorkers int

	// DownloadWorkers bounds concurrent downloads in DownloadAll. Default: 1
	DownloadWorkers int

	Retry RetryPolicy
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		UploadWorkers:   4,
		DownloadWorkers: 1,
		Retry:           DefaultRetryPolicy(),
	}
}

// OptionsFromConfig builds Options from the transfer and retry sections.
func OptionsFromConfig(transfer config.TransferConfig, retry config.RetryConfig) Options {
	opts := DefaultOptions()
	if transfer.UploadWorkers > 0 {
		opts.UploadWorkers = transfer.UploadWorkers
	}
	if transfer.DownloadWorkers > 0 {
		opts.DownloadWorkers = transfer.DownloadWorkers
	}
	opts.Retry = RetryPolicyFromConfig(retry)
	return opts
}

// Transport implements refile.Transport over a refile.Store.
type Transport struct {
	store  refile.Store
	opts   Options
	logger refile.Logger
}

var _ refile.Transport = (*Transport)(nil)

// New creates a Transport that uploads to and downloads from store.
func New(store refile.Store, opts Options, logger refile.Logger) *Transport {
	if opts.UploadWorkers <= 0 {
		opts.UploadWorkers = 1
	}
	if opts.DownloadWorkers <= 0 {
		opts.DownloadWorkers = 1
	}
	return &Transport{store: store, opts: opts, logger: logger}
}

// Upload stores data under name and returns its URL. Transient failures are
// retried per the RetryPolicy; the returned error wraps refile.ErrUploadFailed.
func (t *Transport) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var url string
	var attempts int

	op := func() error {
		attempts++
		u, err := t.store.Put(ctx, name, data)
		if err != nil {
			if errors.Is(err, refile.ErrPermanent) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		url = u
		return nil
	}

	notify := func(err error, wait time.Duration) {
		t.logger.Warn("upload attempt failed, retrying", "name", name, "attempt", attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, t.opts.Retry.newBackOff(ctx), notify); err != nil {
		return "", fmt.Errorf("%w: %s after %d attempt(s): %w", refile.ErrUploadFailed, name, attempts, err)
	}

	t.logger.Debug("chunk uploaded", "name", name, "url", url, "attempts", attempts)
	return url, nil
}

// Download fetches url with a single request.
func (t *Transport) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := t.store.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", refile.ErrDownloadFailed, url, err)
	}
	return data, nil
}

// UploadAll uploads every blob with at most UploadWorkers in flight.
// results[i] always belongs to blobs[i].
func (t *Transport) UploadAll(ctx context.Context, blobs []refile.Blob) []refile.UploadResult {
	results := make([]refile.UploadResult, len(blobs))

	// Workers never return an error, so one failed chunk cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(t.opts.UploadWorkers)

	var failed atomic.Int32
	for i, b := range blobs {
		g.Go(func() error {
			url, err := t.Upload(ctx, b.Name, b.Data)
			results[i] = refile.UploadResult{Index: b.Index, URL: url, Err: err}
			if err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	t.logger.Info("uploads finished", "total", len(blobs), "failed", failed.Load())
	return results
}

// DownloadAll fetches urls with at most DownloadWorkers in flight and
// returns the blobs in the order of urls.
func (t *Transport) DownloadAll(ctx context.Context, urls []string) ([][]byte, error) {
	blobs := make([][]byte, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.DownloadWorkers)

	for i, url := range urls {
		g.Go(func() error {
			data, err := t.Download(gctx, url)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			blobs[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}
