// Package retry implements the bounded exponential backoff used for calls to
// the processing backend.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy computes retry delays. Retry k (0-indexed) waits
// slot * 2^min(k, capExponent) plus jitter drawn uniformly from [0, slot).
type Policy struct {
	Slot        time.Duration
	CapExponent int
	MaxRetries  int
}

func DefaultPolicy() Policy {
	return Policy{
		Slot:        250 * time.Millisecond,
		CapExponent: 5,
		MaxRetries:  5,
	}
}

// Delay returns the wait before retry attempt k, jitter included.
func (p Policy) Delay(attempt int) time.Duration {
	exp := attempt
	if exp > p.CapExponent {
		exp = p.CapExponent
	}
	base := p.Slot * (1 << exp)
	jitter := time.Duration(rand.Int63n(int64(p.Slot)))
	return base + jitter
}

// terminalError marks a failure that must not be retried.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so Do stops retrying and returns it as-is. Use it when
// the backend reports a business-level failure.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was marked with Terminal.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}

// Do runs op, retrying transient failures under p. A nil return is success;
// an error wrapped with Terminal stops immediately; any other error retries
// until MaxRetries, after which the last failure surfaces as terminal.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var te *terminalError
		if errors.As(err, &te) {
			return te.err
		}

		lastErr = err
		if attempt >= p.MaxRetries {
			return fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
}
