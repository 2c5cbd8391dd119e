package store

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

const maxRetryDelay = 10 * time.Second

// RetryPolicy bounds InsertWithRetry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// InsertWithRetry inserts entries as one batch, retrying transient failures
// with jittered exponential backoff. Non-transient errors and context
// cancellation return immediately. When attempts run out the loss is logged
// at critical level and the last error is returned.
func InsertWithRetry(ctx context.Context, s Store, entries []ReferenceEntry, policy RetryPolicy) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.InsertBatch(ctx, entries)
		if err == nil {
			return nil
		}
		if !lerrors.IsTransient(err) || attempt == attempts {
			break
		}

		delay := backoff(policy.BaseDelay, attempt)
		debug.LogIndexing("insert attempt %d/%d failed (%v), retrying in %s\n", attempt, attempts, err, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if lerrors.IsTransient(err) {
		first := entries[0]
		debug.Critical("dropping batch after retries",
			"library", first.LibName,
			"version", first.Version,
			"entries", len(entries),
			"attempts", attempts,
			"error", err)
	}
	return err
}

// backoff returns base*2^(attempt-1) capped at maxRetryDelay, with up to
// half of it replaced by jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	half := d / 2
	return half + rand.N(half+1)
}
