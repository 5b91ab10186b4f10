// Package retry re-runs an operation with exponential backoff.  The
// operator console uses it to wait for a server that is still binding
// its ports.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	xerrors "xm2m/internal/errors"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks a failure that another attempt cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so [Backoff.Do] returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with [Permanent].
func IsPermanent(err error) bool {
	var pe *PermanentError
	return xerrors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff spaces attempts Initial, Initial*Factor, Initial*Factor², …
// apart, never more than Max.  Zero fields take the defaults below.
type Backoff struct {
	Initial  time.Duration // default 250ms
	Max      time.Duration // default 5s
	Factor   float64       // default 2
	Attempts int           // total tries, 0 = until ctx is done
	Jitter   bool          // ±20% per wait

	// OnRetry, when set, is told about each failure that will be
	// retried and how long the next wait is.
	OnRetry func(attempt int, err error, wait time.Duration)
}

const (
	defaultInitial = 250 * time.Millisecond
	defaultMax     = 5 * time.Second
	defaultFactor  = 2.0
	jitterFraction = 0.2
)

// Delay returns the unjittered wait after the given failed attempt
// (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	initial, maxDelay, factor := b.Initial, b.Max, b.Factor
	if initial <= 0 {
		initial = defaultInitial
	}
	if maxDelay <= 0 {
		maxDelay = defaultMax
	}
	if factor < 1 {
		factor = defaultFactor
	}
	if attempt < 1 {
		attempt = 1
	}
	d := float64(initial) * math.Pow(factor, float64(attempt-1))
	if d > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}

// Do calls fn until it returns nil, returns a permanent error, the
// attempt budget runs out or ctx is done.  fn receives the 1-based
// attempt number.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var pe *PermanentError
		if xerrors.As(err, &pe) {
			return pe.Err
		}
		if b.Attempts > 0 && attempt >= b.Attempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = jitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func jitter(d time.Duration) time.Duration {
	spread := float64(d) * jitterFraction
	out := float64(d) + (rand.Float64()*2-1)*spread
	return time.Duration(math.Max(out, float64(time.Millisecond)))
}
