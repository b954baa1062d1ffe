package wallet

import (
	"context"
	"math"
	"time"

	"github.com/txsociety/nano-harvester/pkg/core"
)

// RetryPolicy controls reattempts after a fork rejection. MaxRetries is
// the number of retries on top of the first attempt, so MaxRetries of k
// allows k+1 submissions total.
type RetryPolicy struct {
	MaxRetries   int
	DelayBase    time.Duration
	DelayBackoff float64
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   3,
	DelayBase:    100 * time.Millisecond,
	DelayBackoff: 1.5,
}

// Delay returns the pause before the n-th retry (1-based):
// DelayBase * DelayBackoff^(n-1).
func (p RetryPolicy) Delay(retry int) time.Duration {
	return time.Duration(float64(p.DelayBase) * math.Pow(p.DelayBackoff, float64(retry-1)))
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry drives the optimistic submit loop: run the attempt, and on a
// retryable rejection sleep, refresh the cached state and rebuild from
// the new frontier. Every attempt after the first sees refreshed state.
// Non-retryable failures surface immediately; exhaustion returns a FORK
// error with code MAX_RETRIES_EXCEEDED.
func (w *Wallet) withRetry(ctx context.Context, attempt func(context.Context) (core.BlockHash, error)) (core.BlockHash, error) {
	// A negative MaxRetries still gets the initial attempt.
	retries := max(w.retry.MaxRetries, 0)
	var lastErr *core.Error
	for n := 0; n <= retries; n++ {
		if n > 0 {
			if err := w.sleep(ctx, w.retry.Delay(n)); err != nil {
				return core.ZeroHash, err
			}
			if err := w.refresh(ctx); err != nil {
				return core.ZeroHash, err
			}
		}
		hash, err := attempt(ctx)
		if err == nil {
			return hash, nil
		}
		werr := core.Classify(err)
		if !werr.Retryable() {
			return core.ZeroHash, werr
		}
		lastErr = werr
	}
	return core.ZeroHash, core.NewErrorWithCode(core.KindFork, "MAX_RETRIES_EXCEEDED",
		"block rejected after %d attempts: %s", retries+1, lastErr.Message)
}
