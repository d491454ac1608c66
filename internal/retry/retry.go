package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy defines exponential backoff with jitter for transient failures.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// Default is the policy broker calls run under: up to six attempts starting
// at 600ms, roughly 38s worst case before giving up.
var Default = Policy{
	MaxAttempts: 6,
	BaseDelay:   600 * time.Millisecond,
	MaxDelay:    20 * time.Second,
	Jitter:      0.2,
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn until it succeeds, returns a permanent error, the attempt
// budget is exhausted, or ctx is canceled. The last error is returned
// wrapped with op for context.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry: %s: %w", op, err)
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(last, &pe) {
			return fmt.Errorf("retry: %s: %w", op, pe.err)
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: %s: %w", op, ctx.Err())
		case <-time.After(p.delay(i)):
		}
	}
	return fmt.Errorf("retry: %s: attempts exhausted: %w", op, last)
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration(rand.Float64()*2*spread - spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}
