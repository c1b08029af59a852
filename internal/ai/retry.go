package ai

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// RetryConfig implements the bounded exponential backoff spelled out for the
// Embedder (start 1s, factor 2, 3 attempts), reused for the chat model's
// synchronous Generate path; the chat model's streaming path gets its own
// smaller attempt count. Vector-store calls in internal/vectorstore are
// issued once and are not retried.
type RetryConfig struct {
	Attempts int
	Start    time.Duration
	Factor   float64
}

func DefaultEmbedRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Start: time.Second, Factor: 2}
}

// DefaultChatSyncRetry is the chat model's synchronous Generate path,
// same shape as DefaultEmbedRetry: 3 attempts.
func DefaultChatSyncRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Start: time.Second, Factor: 2}
}

// DefaultChatRetry is reserved for the chat model's streaming path, which
// gets 2 attempts rather than the usual 3.
func DefaultChatRetry() RetryConfig {
	return RetryConfig{Attempts: 2, Start: time.Second, Factor: 2}
}

// withRetry never logs the op's input, only attempt metadata, per the
// "must not log or persist input text in error paths" rule.
func withRetry(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.Start
	if delay <= 0 {
		delay = time.Second
	}
	factor := cfg.Factor
	if factor <= 0 {
		factor = 2
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		logutil.GetLogger(ctx).Warn("ai operation failed, retrying",
			zap.String("op", op), zap.Int("attempt", i+1), zap.Int("max_attempts", attempts), zap.Error(lastErr))
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return lastErr
}
