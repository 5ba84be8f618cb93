package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
		Timeout:   time.Second,
		NoJitter:  true,
	}
}

func TestExecute_ExhaustsRetriesOnNetworkError(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("network error: connection refused")
	}, 3, fastOptions())

	require.Error(t, err)
	assert.Equal(t, 4, calls, "maxRetries+1 attempts expected")

	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 3, retryErr.Retries)
	assert.Greater(t, retryErr.Elapsed, time.Duration(0))
}

func TestExecute_SucceedsOnNthAttempt(t *testing.T) {
	calls := 0
	result, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("request timed out")
		}
		return nil
	}, 5, fastOptions())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, result.Retries)
}

func TestExecute_FatalErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("validation failed")
	}, 3, fastOptions())

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 0, retryErr.Retries)
}

func TestExecute_CallerSuppliedRetryableMessage(t *testing.T) {
	calls := 0
	opts := fastOptions()
	opts.RetryableMessages = []string{"flaky upstream"}

	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("flaky upstream exploded")
	}, 2, opts)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return e.code }
func (e *codedErr) ErrorCode() string { return e.code }

func TestExecute_PendingCodeNeverRetried(t *testing.T) {
	calls := 0
	opts := fastOptions()
	opts.RetryableCodes = []string{"ORDER_PENDING"}

	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return &codedErr{code: "ORDER_PENDING"}
	}, 3, opts)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetryableCode(t *testing.T) {
	calls := 0
	opts := fastOptions()
	opts.RetryableCodes = []string{"KIOSK_BUSY"}

	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return &codedErr{code: "KIOSK_BUSY"}
	}, 2, opts)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

type stubBreaker struct {
	allowErr  error
	successes int
	failures  int
}

func (b *stubBreaker) Allow() error    { return b.allowErr }
func (b *stubBreaker) Success()        { b.successes++ }
func (b *stubBreaker) Failure(_ error) { b.failures++ }

func TestExecute_OpenBreakerFailsFastWithoutInvokingFn(t *testing.T) {
	breaker := &stubBreaker{allowErr: errors.New("API_TEMP_DOWN")}
	opts := fastOptions()
	opts.Breaker = breaker

	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, 3, opts)

	require.Error(t, err)
	assert.Equal(t, "API_TEMP_DOWN", err.Error())
	assert.Equal(t, 0, calls)
}

func TestExecute_BreakerSeesOutcomes(t *testing.T) {
	breaker := &stubBreaker{}
	opts := fastOptions()
	opts.Breaker = breaker

	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("network hiccup")
		}
		return nil
	}, 3, opts)

	require.NoError(t, err)
	assert.Equal(t, 1, breaker.failures)
	assert.Equal(t, 1, breaker.successes)
}

func TestExecute_OnRetryCalledAfterFirstFailure(t *testing.T) {
	var attempts []int
	opts := fastOptions()
	opts.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	}, 5, opts)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestExecute_AttemptTimeout(t *testing.T) {
	opts := fastOptions()
	opts.Timeout = 10 * time.Millisecond

	calls := 0
	_, err := Execute(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	}, 1, opts)

	require.Error(t, err)
	assert.Equal(t, 2, calls, "timeouts are retryable")
}

func TestBackoffDelay_CappedAndExponential(t *testing.T) {
	opts := Options{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, NoJitter: true}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(1, opts))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(2, opts))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(3, opts))
	assert.Equal(t, time.Second, backoffDelay(5, opts))
	assert.Equal(t, time.Second, backoffDelay(20, opts))
}

func TestBackoffDelay_JitterStaysInBounds(t *testing.T) {
	opts := Options{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for i := 0; i < 50; i++ {
		delay := backoffDelay(2, opts)
		assert.GreaterOrEqual(t, delay, 100*time.Millisecond)
		assert.LessOrEqual(t, delay, 300*time.Millisecond)
	}
}
