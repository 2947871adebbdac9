package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, +/- share of the delay added at random
	MaxSameErrorType int     // After N consecutive same-type errors, treat as permanent

	// OnRetry, when set, is called before each back-off with the failed
	// attempt number (0-based), its error and the wait that follows.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns defaults for opening a query-engine session:
// 3 retries with 200ms initial delay, capped at 5s, doubling each time, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// RateLimitConfig returns the schedule used when the oracle answers 429:
// base, 2*base, 4*base ... without jitter, so waits are predictable in logs.
func RateLimitConfig(base time.Duration, maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: base,
		MaxDelay:     base * time.Duration(1<<min(maxRetries, 10)),
		Multiplier:   2.0,
	}
}

// Backoff returns the delay before retry number attempt (0-based), capped at MaxDelay.
func Backoff(cfg *Config, attempt int) time.Duration {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return applyJitter(time.Duration(delay), cfg.JitterFactor)
}

// LinearDelay returns attempt*unit, the pause between correction attempts.
func LinearDelay(unit time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(attempt) * unit
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// applyJitter adds random jitter to a delay to prevent thundering herd.
// Jitter is calculated as: delay +/- (delay * jitterFactor * random(-1 to +1))
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// RetryableError is an interface for errors that explicitly declare their retryability.
// Oracle errors implement this interface to provide explicit retry behavior.
type RetryableError interface {
	error
	IsRetryable() bool
}

var retryablePatterns = []string{
	// connection
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"i/o timeout",
	"network is unreachable",
	"eof",
	// HTTP status codes
	"429",
	"502",
	"503",
	"504",
	// engine / gateway messages
	"rate limit",
	"service busy",
	"service unavailable",
	"too many requests",
	// trino coordinator warming up or without workers
	"server_starting_up",
	"server is starting",
	"no_nodes_available",
	"no nodes available",
	// postgres recovering or restarting
	"the database system is starting up",
	"the database system is in recovery mode",
	// sql server deadlock victim and doris admission control
	"chosen as the deadlock victim",
	"too many queries",
}

// IsRetryable reports whether err is transient. Planner rejections
// (syntax errors, missing tables) are permanent. A RetryableError in the
// chain decides first; a deadline is transient, an explicit cancel is not;
// anything else is matched against known engine and network messages.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// classifyErrorType extracts a category from error for comparison.
// Returns a string representing the error type (e.g., "503", "429", "timeout", "connection", "unknown").
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	errStr := strings.ToLower(err.Error())

	httpCodes := []string{"503", "502", "504", "500", "429", "404", "403", "401", "400"}
	for _, code := range httpCodes {
		if strings.Contains(errStr, code) {
			return code
		}
	}

	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"):
		return "connection"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "broken pipe"):
		return "broken_pipe"
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "too many requests"):
		return "rate_limit"
	}

	return "unknown"
}

// DoIfRetryable calls fn until it succeeds, fails permanently, or retries run
// out. A run of MaxSameErrorType identical transient failures is escalated
// to a permanent one. Back-off waits end early when ctx is done.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		currentErrorType := classifyErrorType(err)
		if currentErrorType == lastErrorType {
			sameErrorCount++
			if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
				return fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, currentErrorType, err)
			}
		} else {
			sameErrorCount = 1
			lastErrorType = currentErrorType
		}

		if attempt < cfg.MaxRetries {
			wait := Backoff(cfg, attempt)
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err, wait)
			}
			if err := Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	return lastErr
}
