package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// RetryConfig configures exponential backoff for transient connection
// acquisition failures, following pkg/retry/retry.go in the reference
// corpus: jittered exponential backoff with a capped delay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryConfig returns sensible defaults: 3 attempts, 50ms initial
// delay doubling up to 2s, jittered.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer retries only EIO failures — everything else (ENOENT, EACCES, a
// pipeline rejection, ...) is a decision the caller made correctly the
// first time and retrying it would just repeat it.
type Retryer struct {
	config RetryConfig
}

// NewRetryer builds a Retryer, filling in zero-valued numeric fields from
// DefaultRetryConfig. Jitter is taken from config as given.
func NewRetryer(config RetryConfig) *Retryer {
	d := DefaultRetryConfig()
	if config.MaxAttempts > 0 {
		d.MaxAttempts = config.MaxAttempts
	}
	if config.InitialDelay > 0 {
		d.InitialDelay = config.InitialDelay
	}
	if config.MaxDelay > 0 {
		d.MaxDelay = config.MaxDelay
	}
	if config.Multiplier > 0 {
		d.Multiplier = config.Multiplier
	}
	d.Jitter = config.Jitter
	return &Retryer{config: d}
}

// Do runs fn, retrying while it fails with vfserrors.EIO, up to
// MaxAttempts, with exponential backoff between attempts.
func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !vfserrors.Is(err, vfserrors.EIO) || attempt == r.config.MaxAttempts {
			return err
		}

		delay := r.delay(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("retry attempts exhausted: %w", lastErr)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		d += d * 0.2 * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}
