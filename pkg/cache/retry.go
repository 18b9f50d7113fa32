package cache

import (
	"context"
	"time"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
)

// unavailable marks a backend failure that is expected to clear on its own.
// [Retry] only retries errors marked this way.
func unavailable(backend string, err error) error {
	return tlerrors.Wrap(tlerrors.ErrCodeUnavailable, err, "%s unreachable", backend)
}

// Backoff bounds a retry loop. The delay doubles after every attempt.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff is used by [RetryWithBackoff].
var DefaultBackoff = Backoff{Attempts: 3, Delay: 100 * time.Millisecond}

// Retry calls fn until it succeeds or returns an error that is not
// transient, for at most b.Attempts calls.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	delay := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !tlerrors.IsTransient(err) || attempt >= b.Attempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

// RetryWithBackoff is Retry with [DefaultBackoff].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultBackoff, fn)
}
