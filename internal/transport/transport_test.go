package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"refile/internal/config"
	"refile/internal/refile"
	"refile/internal/testutil"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func newTestTransport(attempts, workers int) (*Transport, *testutil.FlakyStore) {
	flaky := testutil.NewFlakyStore(testutil.NewTestStore())
	opts := Options{UploadWorkers: workers, DownloadWorkers: workers, Retry: fastPolicy(attempts)}
	return New(flaky, opts, refile.NewNopLogger()), flaky
}

func TestUpload_RetriesTransientErrors(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(5, 1)
	flaky.FailTimes("a", 3)

	url, err := tr.Upload(context.Background(), "a", []byte("x"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url == "" {
		t.Error("Upload() returned empty url")
	}
	if got := flaky.Attempts("a"); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
}

func TestUpload_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(5, 1)
	flaky.FailAlways("a")

	_, err := tr.Upload(context.Background(), "a", []byte("x"))
	if !errors.Is(err, refile.ErrUploadFailed) {
		t.Errorf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if !errors.Is(err, refile.ErrPermanent) {
		t.Errorf("Upload() error = %v, want cause ErrPermanent", err)
	}
	if got := flaky.Attempts("a"); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestUpload_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(3, 1)
	flaky.FailTimes("a", 100)

	_, err := tr.Upload(context.Background(), "a", []byte("x"))
	if !errors.Is(err, refile.ErrUploadFailed) {
		t.Errorf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if got := flaky.Attempts("a"); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestUpload_StopsOnCancel(t *testing.T) {
	t.Parallel()
	flaky := testutil.NewFlakyStore(testutil.NewTestStore())
	flaky.FailTimes("a", 100)
	policy := RetryPolicy{MaxAttempts: 0, InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 2}
	tr := New(flaky, Options{UploadWorkers: 1, Retry: policy}, refile.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Upload(ctx, "a", []byte("x"))
	if !errors.Is(err, refile.ErrUploadFailed) {
		t.Errorf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Upload() kept waiting after context was done")
	}
}

func TestUploadAll_AlignsResultsAndIsolatesFailures(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(2, 3)
	flaky.FailAlways("chunk_2")
	flaky.Delay("chunk_0", 30*time.Millisecond)

	blobs := make([]refile.Blob, 6)
	for i := range blobs {
		blobs[i] = refile.Blob{Index: i, Name: fmt.Sprintf("chunk_%d", i), Data: []byte{byte(i)}}
	}

	results := tr.UploadAll(context.Background(), blobs)
	if len(results) != len(blobs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(blobs))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d", i, r.Index)
		}
		if i == 2 {
			if !errors.Is(r.Err, refile.ErrUploadFailed) {
				t.Errorf("results[2].Err = %v, want ErrUploadFailed", r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
		if r.URL != fmt.Sprintf("mem://test-store/chunk_%d", i) {
			t.Errorf("results[%d].URL = %s", i, r.URL)
		}
	}
}

func TestUploadAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(1, 2)

	blobs := make([]refile.Blob, 8)
	for i := range blobs {
		name := fmt.Sprintf("c%d", i)
		flaky.Delay(name, 10*time.Millisecond)
		blobs[i] = refile.Blob{Index: i, Name: name, Data: []byte("x")}
	}

	tr.UploadAll(context.Background(), blobs)
	if got := flaky.PeakConcurrency(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestDownloadAll(t *testing.T) {
	t.Parallel()
	tr, flaky := newTestTransport(1, 3)
	ctx := context.Background()

	var urls []string
	for i := range 5 {
		u, err := flaky.Put(ctx, fmt.Sprintf("b%d", i), []byte{byte(i)})
		if err != nil {
			t.Fatal(err)
		}
		urls = append(urls, u)
	}

	blobs, err := tr.DownloadAll(ctx, urls)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	for i, b := range blobs {
		if len(b) != 1 || b[0] != byte(i) {
			t.Errorf("blobs[%d] = %v", i, b)
		}
	}

	_, err = tr.DownloadAll(ctx, append(urls, "mem://test-store/missing"))
	if !errors.Is(err, refile.ErrDownloadFailed) {
		t.Errorf("DownloadAll() error = %v, want ErrDownloadFailed", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()
	opts := OptionsFromConfig(
		config.TransferConfig{UploadWorkers: 8},
		config.RetryConfig{MaxAttempts: 2, Multiplier: 0.5, Jitter: 3},
	)
	if opts.UploadWorkers != 8 || opts.DownloadWorkers != 1 {
		t.Errorf("workers = %d/%d, want 8/1", opts.UploadWorkers, opts.DownloadWorkers)
	}
	def := config.DefaultRetryConfig()
	if opts.Retry.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", opts.Retry.MaxAttempts)
	}
	if opts.Retry.InitialInterval != def.InitialInterval || opts.Retry.Multiplier != def.Multiplier || opts.Retry.Jitter != def.Jitter {
		t.Errorf("invalid fields not defaulted: %+v", opts.Retry)
	}
}
