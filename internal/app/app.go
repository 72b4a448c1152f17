package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"refile/internal/config"
	"refile/internal/encryption"
	"refile/internal/fs"
	"refile/internal/refile"
	"refile/internal/store"
	"refile/internal/transport"
)

// Options tune how a RefileApp is built.
type Options struct {
	// Verbose lowers the log level to debug.
	Verbose bool

	// Store overrides the store built from config. Tests use it to inject
	// an in-memory store.
	Store refile.Store
}

// RefileApp is the application layer between the CLI and refile.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and closes resources on Close.
type RefileApp struct {
	cfg     *config.Config
	store   refile.Store
	keyFile *encryption.KeyFile
	service *refile.Service
	logger  *slog.Logger
	op      *Operation
	logFile *os.File
}

// NewRefileApp creates a fully wired RefileApp from the given config.
// operation identifies the CLI command being run (e.g. "split", "reconstruct").
// The caller must call Close when done.
func NewRefileApp(ctx context.Context, cfg *config.Config, creds store.Credentials, operation string, args []string, opts Options) (*RefileApp, error) {
	op := NewOperation(operation, args, time.Now())

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.ShortID(), level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	s := opts.Store
	if s == nil {
		s, err = store.NewStoreFromConfig(ctx, cfg.Store, creds)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating store: %w", err)
		}
	}

	cipher, err := encryption.NewCipherFromConfig(cfg.Key)
	if err != nil {
		closeStore(s)
		logFile.Close()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	tr := transport.New(s, transport.OptionsFromConfig(cfg.Transfer, cfg.Retry), adapter)
	svc := refile.NewService(fs.NewOSFilesystemManager(), cipher, tr, adapter, refile.RealClock{}, refile.UUIDGenerator{})

	logger.Debug("operation started", "operation", op.Name, "args", op.Args, "store", cfg.Store.Type)

	return &RefileApp{
		cfg:     cfg,
		store:   s,
		keyFile: encryption.NewKeyFile(cfg.Key),
		service: svc,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// KeyFile returns the configured key file.
func (a *RefileApp) KeyFile() *encryption.KeyFile {
	return a.keyFile
}

// InitKey generates a new key and stores it encrypted with passphrase.
func (a *RefileApp) InitKey(passphrase string) error {
	if _, err := a.keyFile.Create(passphrase); err != nil {
		return a.fail(fmt.Errorf("creating key: %w", err))
	}
	a.logger.Info("key created", "path", a.keyFile.Path())
	return nil
}

// UnlockKey decrypts the configured key file.
func (a *RefileApp) UnlockKey(passphrase string) (refile.Key, error) {
	key, err := a.keyFile.Unlock(passphrase)
	if err != nil {
		return key, a.fail(fmt.Errorf("unlocking key %s: %w", a.keyFile.Path(), err))
	}
	return key, nil
}

// Split splits input into chunkCount encrypted chunks and writes the manifest
// into outputDir. The configured require_complete policy applies.
func (a *RefileApp) Split(ctx context.Context, input, outputDir string, chunkCount int, key refile.Key) (*refile.SplitResult, error) {
	res, err := a.service.Split(ctx, input, outputDir, key,
		refile.WithChunkCount(chunkCount),
		refile.WithRequireComplete(a.cfg.Transfer.RequireComplete),
	)
	if err != nil {
		return nil, a.fail(err)
	}
	if len(res.Missing) > 0 {
		a.op.Fail()
	}
	return res, nil
}

// Reconstruct rebuilds the file described by the manifest at manifestPath.
func (a *RefileApp) Reconstruct(ctx context.Context, manifestPath, outputDir string, key refile.Key) (*refile.ReconstructResult, error) {
	res, err := a.service.Reconstruct(ctx, manifestPath, outputDir, key)
	if err != nil {
		return nil, a.fail(err)
	}
	return res, nil
}

// RunResult is the outcome of a split followed by a reconstruct.
type RunResult struct {
	Split       *refile.SplitResult
	Reconstruct *refile.ReconstructResult
}

// Run splits input and immediately reconstructs it into outputDir with the
// same key, verifying the round trip. A split that left gaps is reported
// together with the reconstruction failure it causes.
func (a *RefileApp) Run(ctx context.Context, input, outputDir string, chunkCount int, key refile.Key) (*RunResult, error) {
	split, err := a.Split(ctx, input, outputDir, chunkCount, key)
	if err != nil {
		return nil, err
	}

	rec, err := a.Reconstruct(ctx, split.ManifestPath, outputDir, key)
	if err != nil {
		return &RunResult{Split: split}, err
	}
	return &RunResult{Split: split, Reconstruct: rec}, nil
}

// CheckStore verifies the configured store is reachable.
func (a *RefileApp) CheckStore(ctx context.Context) error {
	if err := a.store.ValidateSetup(ctx); err != nil {
		return a.fail(fmt.Errorf("store %s (%s): %w", a.cfg.Store.Name, a.cfg.Store.Type, err))
	}
	return nil
}

// Operation returns the operation this app was built for.
func (a *RefileApp) Operation() *Operation {
	return a.op
}

func (a *RefileApp) fail(err error) error {
	a.op.Fail()
	a.logger.Error("operation failed", "operation", a.op.Name, "error", err)
	return err
}

// Close logs the operation outcome and releases the store and log file.
func (a *RefileApp) Close() error {
	var firstErr error

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Truncate(time.Millisecond),
	)

	if err := closeStore(a.store); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}

func closeStore(s refile.Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
