package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Breaker gates attempts against a flaky upstream. Implementations decide
// when to fail fast; this package only reports outcomes to them.
type Breaker interface {
	// Allow returns a non-nil error when calls must fail fast.
	Allow() error
	Success()
	Failure(err error)
}

type Options struct {
	BaseDelay time.Duration // first backoff step, default 500ms
	MaxDelay  time.Duration // backoff cap, default 10s
	Timeout   time.Duration // per-attempt budget, default 15s
	NoJitter  bool

	// Extra substrings/codes that mark an error retryable on top of the
	// built-in network/timeout classification.
	RetryableMessages []string
	RetryableCodes    []string

	Breaker Breaker
	OnRetry func(attempt int, err error)
}

type Result struct {
	Retries int
	Elapsed time.Duration
}

// Error is returned after all retries are exhausted.
type Error struct {
	Err     error
	Retries int
	Elapsed time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("giving up after %d retries (%s): %v", e.Retries, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type timeoutError struct{ budget time.Duration }

func (e *timeoutError) Error() string     { return fmt.Sprintf("attempt timeout after %s", e.budget) }
func (e *timeoutError) ErrorCode() string { return "TIMEOUT" }

type coder interface{ ErrorCode() string }

var defaultRetryableMessages = []string{
	"network",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"failed to fetch",
	"no such host",
	"cors",
	"EOF",
}

func retryable(err error, opts Options) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var c coder
	if errors.As(err, &c) {
		code := c.ErrorCode()
		// Pending states mean the upstream accepted the request; hammering
		// it again would duplicate work, never fix it.
		if strings.Contains(strings.ToUpper(code), "PENDING") {
			return false
		}
		if code == "TIMEOUT" {
			return true
		}
		for _, rc := range opts.RetryableCodes {
			if code == rc {
				return true
			}
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range defaultRetryableMessages {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	for _, s := range opts.RetryableMessages {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func backoffDelay(attempt int, opts Options) time.Duration {
	delay := opts.BaseDelay << (attempt - 1)
	if delay > opts.MaxDelay || delay <= 0 {
		delay = opts.MaxDelay
	}
	if !opts.NoJitter {
		// ±50% around the computed delay
		delay = delay/2 + time.Duration(rand.Int63n(int64(delay)))
	}
	return delay
}

// Execute runs fn with a per-attempt timeout and up to maxRetries retries
// on retryable failures, backing off exponentially between attempts. The
// breaker, when set, is consulted before every attempt and fails the whole
// call fast without invoking fn.
func Execute(ctx context.Context, fn func(ctx context.Context) error, maxRetries int, opts Options) (*Result, error) {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	start := time.Now()
	var lastErr error
	retries := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		retries = attempt
		if opts.Breaker != nil {
			if err := opts.Breaker.Allow(); err != nil {
				return nil, err
			}
		}

		lastErr = runAttempt(ctx, fn, opts.Timeout)
		if lastErr == nil {
			if opts.Breaker != nil {
				opts.Breaker.Success()
			}
			return &Result{Retries: attempt, Elapsed: time.Since(start)}, nil
		}

		if opts.Breaker != nil {
			opts.Breaker.Failure(lastErr)
		}

		if !retryable(lastErr, opts) || attempt == maxRetries {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, lastErr)
		}

		select {
		case <-time.After(backoffDelay(attempt+1, opts)):
		case <-ctx.Done():
			return nil, &Error{Err: ctx.Err(), Retries: attempt, Elapsed: time.Since(start)}
		}
	}

	return nil, &Error{Err: lastErr, Retries: retries, Elapsed: time.Since(start)}
}

func runAttempt(ctx context.Context, fn func(ctx context.Context) error, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(attemptCtx) }()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return &timeoutError{budget: timeout}
	}
}
