package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errLocked = errors.New("database is locked")
	errBroken = errors.New("no such table")
)

func isLocked(err error) bool { return errors.Is(err, errLocked) }

// scripted returns the scripted errors in order, then succeeds.
type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) op(ctx context.Context) (int, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return 0, s.errs[s.calls-1]
	}
	return 42, nil
}

// fakeClock records requested sleeps without waiting.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return nil
}

func testPolicy(clock *fakeClock) Policy {
	p := Default(isLocked)
	p.Sleep = clock.sleep
	return p
}

func TestDoSucceedsAfterTwoLocks(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errLocked, errLocked}}

	got, err := Do(context.Background(), testPolicy(clock), s.op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if s.calls != 3 {
		t.Errorf("expected 3 calls, got %d", s.calls)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != 2*time.Second {
			t.Errorf("expected 2s backoff, got %s", d)
		}
	}
}

func TestDoExhausted(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errLocked, errLocked, errLocked, errLocked}}

	_, err := Do(context.Background(), testPolicy(clock), s.op)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, errLocked) {
		t.Errorf("expected last error to be wrapped, got %v", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Errorf("expected ExhaustedError with 3 attempts, got %#v", err)
	}
	if s.calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", s.calls)
	}
	if len(clock.sleeps) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(clock.sleeps))
	}
}

func TestDoNonTransientFailsImmediately(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errBroken}}

	_, err := Do(context.Background(), testPolicy(clock), s.op)
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected errBroken, got %v", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("non-transient failure must not be reported as exhausted")
	}
	if s.calls != 1 {
		t.Errorf("expected 1 call, got %d", s.calls)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("expected no sleeps, got %d", len(clock.sleeps))
	}
}

func TestDoLockThenPermanentError(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errLocked, errBroken}}

	_, err := Do(context.Background(), testPolicy(clock), s.op)
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected errBroken, got %v", err)
	}
	if s.calls != 2 || len(clock.sleeps) != 1 {
		t.Errorf("expected 2 calls and 1 sleep, got %d and %d", s.calls, len(clock.sleeps))
	}
}

func TestDoNilClassifierNeverRetries(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errLocked}}

	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Sleep: clock.sleep}, s.op)
	if !errors.Is(err, errLocked) || s.calls != 1 {
		t.Errorf("expected a single failed call, got %d calls, err %v", s.calls, err)
	}
}

func TestDoOnRetry(t *testing.T) {
	clock := &fakeClock{}
	s := &scripted{errs: []error{errLocked, errLocked}}

	var seen []int
	p := testPolicy(clock)
	p.OnRetry = func(attempt int, err error) {
		seen = append(seen, attempt)
	}

	if _, err := Do(context.Background(), p, s.op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected OnRetry for attempts 1 and 2, got %v", seen)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scripted{errs: []error{errLocked, errLocked}}

	p := Default(isLocked)
	p.Backoff = time.Hour
	p.OnRetry = func(int, error) { cancel() }

	_, err := Do(ctx, p, s.op)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", s.calls)
	}
}
