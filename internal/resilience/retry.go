package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted wraps the last error once every attempt of [Retry] has
// failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy bounds [Retry].
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 mean a single attempt.
	Attempts int

	// Backoff is the wait after the first failure. The wait doubles after
	// every further failure: Backoff, 2*Backoff, 4*Backoff...
	Backoff time.Duration
}

// Delay returns the wait before attempt+1, where attempt is the 0-based index
// of the attempt that just failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff <= 0 || attempt < 0 {
		return 0
	}
	return p.Backoff << attempt
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. [Retry] returns it unwrapped
// from the marker immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a [Permanent] error, ctx is done,
// or the policy's attempts are used up. fn receives the 0-based attempt
// index. Waiting between attempts honours ctx.
func Retry(ctx context.Context, p RetryPolicy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
