package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"refile/internal/config"
)

// RetryPolicy configures the exponential backoff applied to uploads.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, first try included.
	// Zero means no attempt limit (MaxElapsedTime still applies).
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay between attempts.
	MaxInterval time.Duration

	// MaxElapsedTime stops retrying once this much time has passed since
	// the first attempt. Zero means no limit.
	MaxElapsedTime time.Duration

	// Multiplier grows the delay after every attempt.
	Multiplier float64

	// Jitter randomizes each delay by ±Jitter of its value.
	Jitter float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicyFromConfig(config.DefaultRetryConfig())
}

// RetryPolicyFromConfig converts the config representation, filling in
// defaults for unset fields.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	def := config.DefaultRetryConfig()
	p := RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsedTime:  cfg.MaxElapsedTime,
		Multiplier:      cfg.Multiplier,
		Jitter:          cfg.Jitter,
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = def.Jitter
	}
	return p
}

// newBackOff builds a fresh backoff.BackOff for one upload.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsedTime
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = p.Jitter
	eb.Reset()

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}
