package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
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
	JitterFactor     float64 // 0.0-1.0, spread applied to each delay
	MaxSameErrorType int     // After N consecutive same-type errors, treat as permanent
}

// DefaultConfig returns the policy used for opening stores:
// 3 attempts with 100ms initial delay, capped at 2s, doubling each time, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       2,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// FromAttempts builds a Config from a total attempt count. Values below one mean a single attempt.
func FromAttempts(attempts int, initial, max time.Duration, multiplier float64) *Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = attempts - 1
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if initial > 0 {
		cfg.InitialDelay = initial
	}
	if max > 0 {
		cfg.MaxDelay = max
	}
	if multiplier >= 1 {
		cfg.Multiplier = multiplier
	}
	return cfg
}

// applyJitter adds random jitter to a delay so that processes started together
// do not hammer a recovering server in lockstep.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

func (c *Config) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * c.Multiplier)
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// IsRetryable determines if an error is transient and worth retrying.
// Auth failures, bad SQL and constraint violations return false.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"too many clients",
		"deadlock",
		"network is unreachable",
		"database is locked",
		"database is busy",
		"the database system is starting up",
		"server closed the connection",
		"bad connection",
		"unexpected eof",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// classifyErrorType extracts a category from err for detecting repeated failures.
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"):
		return "connection"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "broken pipe"):
		return "broken_pipe"
	case strings.Contains(errStr, "locked"), strings.Contains(errStr, "busy"):
		return "locked"
	case strings.Contains(errStr, "too many"):
		return "capacity"
	}
	return "unknown"
}

// DoWithResultIfRetryable runs fn until it succeeds, returns a permanent error,
// or the attempts are used up. Waits between attempts respect ctx.
// After MaxSameErrorType consecutive failures of one type the error is escalated.
func DoWithResultIfRetryable[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var zero T
	var lastErr error
	delay := cfg.InitialDelay
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		currentErrorType := classifyErrorType(err)
		if currentErrorType == lastErrorType {
			sameErrorCount++
			if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
				return zero, fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, currentErrorType, err)
			}
		} else {
			sameErrorCount = 1
			lastErrorType = currentErrorType
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = cfg.next(delay)
			case <-ctx.Done():
				return zero, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
		}
	}

	return zero, lastErr
}

// DoIfRetryable is DoWithResultIfRetryable for functions without a result.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResultIfRetryable(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
