package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fast(attempts int) *Backoff {
	return &Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Attempts: attempts}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	var calls int
	err := fast(5).Do(context.Background(), func(attempt int) error {
		calls++
		if attempt != calls {
			t.Errorf("attempt = %d, want %d", attempt, calls)
		}
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_Permanent(t *testing.T) {
	inner := errors.New("no such host")
	var calls int
	err := fast(10).Do(context.Background(), func(int) error {
		calls++
		return Permanent(inner)
	})
	if err != inner {
		t.Errorf("err = %v, want the unwrapped inner error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	var calls int
	err := fast(3).Do(context.Background(), func(int) error {
		calls++
		return errors.New("refused")
	})
	if err == nil || !strings.Contains(err.Error(), "gave up after 3 attempts") {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backoff{Initial: time.Hour}
	err := b.Do(ctx, func(int) error {
		cancel()
		return errors.New("refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDo_OnRetry(t *testing.T) {
	var seen []int
	b := fast(3)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		if wait <= 0 {
			t.Errorf("wait = %v", wait)
		}
	}
	_ = b.Do(context.Background(), func(int) error { return errors.New("x") })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestDelay(t *testing.T) {
	b := &Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelay_Defaults(t *testing.T) {
	var b Backoff
	if got := b.Delay(1); got != defaultInitial {
		t.Errorf("Delay(1) = %v, want %v", got, defaultInitial)
	}
	if got := b.Delay(100); got != defaultMax {
		t.Errorf("Delay(100) = %v, want %v", got, defaultMax)
	}
}

func TestJitter_Range(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 200; i++ {
		d := jitter(base)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("jitter(%v) = %v, outside ±20%%", base, d)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if !IsPermanent(Permanent(errors.New("x"))) {
		t.Error("wrapped error not detected")
	}
	if IsPermanent(errors.New("x")) {
		t.Error("plain error reported permanent")
	}
}
