package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}

func TestBackoff_Exponential(t *testing.T) {
	cfg := RateLimitConfig(5*time.Second, 3)

	assert.Equal(t, 5*time.Second, Backoff(cfg, 0))
	assert.Equal(t, 10*time.Second, Backoff(cfg, 1))
	assert.Equal(t, 20*time.Second, Backoff(cfg, 2))
	assert.Equal(t, 40*time.Second, Backoff(cfg, 3))
	assert.Equal(t, 40*time.Second, Backoff(cfg, 6), "capped at MaxDelay")
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	cfg := &Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, JitterFactor: 0.1}
	for i := 0; i < 50; i++ {
		d := Backoff(cfg, 1)
		assert.GreaterOrEqual(t, d, 180*time.Millisecond)
		assert.LessOrEqual(t, d, 220*time.Millisecond)
	}
}

func TestLinearDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), LinearDelay(time.Second, 0))
	assert.Equal(t, 2*time.Second, LinearDelay(time.Second, 2))
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestDoIfRetryable_SuccessAfterTransientFailures(t *testing.T) {
	var waits []time.Duration
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			waits = append(waits, wait)
		},
	}

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("Query failed: SERVER_STARTING_UP")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDoIfRetryable_Exhausted(t *testing.T) {
	cfg := &Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("i/o timeout")
	})

	assert.EqualError(t, err, "i/o timeout")
	assert.Equal(t, 3, calls)
}

type explicitErr struct{ retryable bool }

func (e explicitErr) Error() string      { return "explicit" }
func (e explicitErr) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limited", errors.New("HTTP 429 Too Many Requests"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"syntax error", errors.New("line 1:8: mismatched input 'FORM'"), false},
		{"trino no workers", errors.New("NO_NODES_AVAILABLE: Awaiting workers"), true},
		{"postgres recovering", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), true},
		{"doris admission", errors.New("Error 1105: too many queries in queue"), true},
		{"missing table", errors.New(`relation "orders" does not exist`), false},
		{"explicit retryable", explicitErr{retryable: true}, true},
		{"explicit permanent wrapped", errors.Join(errors.New("ctx"), explicitErr{retryable: false}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_PermanentReturnsImmediately(t *testing.T) {
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("Access Denied: Cannot select from table")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoIfRetryable_EscalatesRepeatedErrors(t *testing.T) {
	cfg := &Config{MaxRetries: 10, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxSameErrorType: 3}

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated error (3 times, type=connection)")
	assert.Equal(t, 3, calls)
}
