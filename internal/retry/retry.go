// Package retry provides a reusable retry policy for network-calling
// operations: bounded attempts, exponential backoff, and a retryable-error
// predicate. Every outbound call in siterag (sitemap fetch, page fetch,
// embedding, index writes) goes through Do with the same default schedule.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config configures the retry behavior.
type Config struct {
	MaxRetries      int           // Retry attempts after the first try
	InitialInterval time.Duration // First backoff interval
	MaxInterval     time.Duration // Backoff cap
	// Retryable decides whether an error is transient. Nil means
	// DefaultRetryable.
	Retryable func(error) bool
}

// DefaultConfig returns the schedule used across the toolchain:
// 3 retries with 1s, 2s, 4s backoff.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: String matching is used because HTTP clients and provider SDKs do
// not expose typed errors for transient failures. Re-evaluate if the SDKs
// grow structured error types.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// DefaultRetryable reports whether err looks transient.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}

// Do executes op with exponential backoff until it succeeds, returns a
// non-retryable error, exhausts cfg.MaxRetries, or ctx is canceled.
// The zero-value result is returned alongside any error.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T

	retryable := cfg.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	delay := cfg.InitialInterval
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return zero, fmt.Errorf("after %d retries: %w", cfg.MaxRetries, lastErr)
}
