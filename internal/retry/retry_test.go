package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_DelayBounds(t *testing.T) {
	p := Policy{Slot: 250 * time.Millisecond, CapExponent: 5, MaxRetries: 5}

	// attempt 3: base 250*8=2000ms, jitter in [0,250)
	for i := 0; i < 50; i++ {
		d := p.Delay(3)
		if d < 2000*time.Millisecond || d >= 2250*time.Millisecond {
			t.Fatalf("delay out of bounds: %v", d)
		}
	}
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{Slot: 10 * time.Millisecond, CapExponent: 2, MaxRetries: 10}

	// attempts past the cap use the same base: 10*4=40ms
	for _, attempt := range []int{2, 5, 20} {
		d := p.Delay(attempt)
		if d < 40*time.Millisecond || d >= 50*time.Millisecond {
			t.Fatalf("attempt %d: delay out of capped bounds: %v", attempt, d)
		}
	}
}

func TestDo_SuccessAfterTransient(t *testing.T) {
	p := Policy{Slot: time.Millisecond, CapExponent: 1, MaxRetries: 5}
	attempts := 0

	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_TerminalStopsImmediately(t *testing.T) {
	p := Policy{Slot: time.Millisecond, CapExponent: 1, MaxRetries: 5}
	attempts := 0
	boom := errors.New("rejected")

	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return Terminal(boom)
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_ExhaustedRetries(t *testing.T) {
	p := Policy{Slot: time.Millisecond, CapExponent: 1, MaxRetries: 2}
	attempts := 0
	boom := errors.New("down")

	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected last transient error surfaced, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (initial + 2 retries), got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	p := Policy{Slot: time.Hour, CapExponent: 1, MaxRetries: 5}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, p, func(ctx context.Context) error {
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(Terminal(errors.New("x"))) {
		t.Error("expected terminal")
	}
	if IsTerminal(errors.New("x")) {
		t.Error("plain error is not terminal")
	}
	if Terminal(nil) != nil {
		t.Error("Terminal(nil) should be nil")
	}
}
