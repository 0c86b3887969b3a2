package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the slice of the cache the limiter needs: an atomic
// increment that auto-expires the key after ttl when first created.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter bounds how many orchestration requests a caller may issue per
// fixed window. The counter is always incremented, even on denial, so a
// denied caller cannot probe for free. Fixed windows mean a burst
// straddling a window boundary can reach up to twice the nominal budget;
// that coarseness is accepted rather than papered over with a sliding
// window the counter store cannot express atomically.
type Limiter struct {
	store  CounterStore
	budget int64
	window time.Duration
}

func New(store CounterStore, budget int64, window time.Duration) *Limiter {
	return &Limiter{store: store, budget: budget, window: window}
}

// Check increments the caller's window counter and reports whether the
// caller is still within budget.
func (l *Limiter) Check(ctx context.Context, callerID string) (bool, error) {
	count, err := l.store.Increment(ctx, "rate_limit:"+callerID, l.window)
	if err != nil {
		return false, err
	}
	return count <= l.budget, nil
}
