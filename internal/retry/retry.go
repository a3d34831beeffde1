// Package retry runs an operation again after a fixed pause when it fails
// with an error the caller classifies as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults used by every SQLite-backed probe.
const (
	DefaultAttempts = 3
	DefaultBackoff  = 2 * time.Second
)

// ErrExhausted is matched by the error returned once all attempts failed.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError carries the last transient failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap lets errors.Is match both ErrExhausted and the last failure.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Policy configures Do.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration

	// Retryable classifies errors. Nil means nothing is retried.
	Retryable func(error) bool

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each pause, with the 1-based attempt that failed.
	OnRetry func(attempt int, err error)
}

// Default returns the fixed three attempts, two seconds apart.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultAttempts,
		Backoff:     DefaultBackoff,
		Retryable:   retryable,
	}
}

// Do calls op until it succeeds, fails with a non-retryable error, or
// MaxAttempts calls have failed with retryable errors.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}
		if attempt >= attempts {
			return zero, &ExhaustedError{Attempts: attempt, Last: err}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Backoff); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
