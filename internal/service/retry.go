package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = time.Second
)

// RetryPolicy wraps a single network operation with exponential backoff. Only
// transient failures are retried; an explicit rejection by the remote service
// surfaces immediately, because a rejected input does not become acceptable by
// waiting.
//
// With the defaults the delay sequence is 1s, 2s, 4s across 3 attempts.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// RetryPolicyOptions groups construction parameters for RetryPolicy.
type RetryPolicyOptions struct {
	MaxAttempts int           // Optional: defaults to 3
	BaseDelay   time.Duration // Optional: defaults to 1s; tests shrink this
	Logger      *slog.Logger  // Optional: structured logger
}

// NewRetryPolicy constructs a RetryPolicy.
func NewRetryPolicy(opts RetryPolicyOptions) *RetryPolicy {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBase
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "retry_policy")
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Do runs fn up to the attempt ceiling, sleeping between transient failures.
// The final error is returned unwrapped so callers keep its classification.
func (p *RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.baseDelay

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperrors.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}

		if p.logger != nil {
			p.logger.DebugContext(ctx, "transient failure, backing off",
				"op", op,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, op+" canceled during backoff")
		}
		delay *= 2
	}

	return lastErr
}
