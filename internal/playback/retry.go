package playback

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryOptions bounds how many times, and with what delay, a transient
// playback failure is retried before giving up (spec §4.5).
type RetryOptions struct {
	MaxRetryCount int
	RetryDelay    time.Duration
}

// DefaultRetryOptions matches the teacher's conservative defaults for
// reconnect-style operations: a handful of attempts, short delay.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{MaxRetryCount: 3, RetryDelay: 500 * time.Millisecond}
}

// isTransient classifies an error as worth retrying: network errors and
// the explicit ErrRetryRequested marker. Cancellation and the fatal
// classification errors are never retried.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) {
		return false
	}
	if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidSource) || errors.Is(err, ErrNoAudioOutputs) {
		return false
	}
	if errors.Is(err, ErrRetryRequested) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// withRetry runs attempt until it succeeds, returns a non-transient error,
// or exhausts opts.MaxRetryCount. The delay doubles after each attempt,
// starting at RetryDelay (RetryDelay, 2×, 4×, …); no jitter is added.
func withRetry(ctx context.Context, opts RetryOptions, attempt func() error) error {
	var lastErr error
	for i := 0; i <= opts.MaxRetryCount; i++ {
		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
		if i == opts.MaxRetryCount {
			break
		}
		delay := opts.RetryDelay << uint(i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
