// Package backoff provides bounded exponential retry delays for transient
// venue I/O failures. Order placement must not go through Retry.
package backoff

import (
	"context"
	"time"
)

const (
	baseDelay = 500 * time.Millisecond
	maxDelay  = 30 * time.Second
)

// Delay returns baseDelay * 2^attempt, capped at maxDelay.
func Delay(attempt int) time.Duration {
	if attempt < 0 {
		return baseDelay
	}
	// 2^25 * 500ms already exceeds any sensible cap.
	if attempt > 25 {
		return maxDelay
	}
	d := baseDelay * time.Duration(1<<attempt)
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// Retry runs fn up to attempts times, sleeping Delay(i) between failures.
// Returns the last error when every attempt fails, or ctx.Err() if the
// context is canceled while waiting.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(i)):
		}
	}
	return err
}
