// Package resilience wraps network-bound adapters with per-attempt
// timeouts, bounded retries with exponential backoff and a rate limiter.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/logger"
)

// Default policy values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	BaseDelay         = 200 * time.Millisecond
	MaxDelay          = 5 * time.Second
)

// Config holds the retry and rate limiting policy.
type Config struct {
	// Timeout bounds a single attempt. Zero uses DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Negative disables retries.
	MaxRetries int

	// RequestsPerSecond is the sustained request rate. Zero means unlimited.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default: 1).
	Burst int

	// BaseDelay is the first backoff delay (default: 200ms).
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay (default: 5s).
	MaxDelay time.Duration
}

// Policy executes calls under a Config. It is safe for concurrent use.
type Policy struct {
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	limiter    *rate.Limiter
	wait       func(ctx context.Context, d time.Duration) error
}

// NewPolicy creates a policy from cfg.
func NewPolicy(cfg Config) *Policy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = MaxDelay
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Policy{
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		wait:       sleep,
	}
}

// Backoff returns the default delay before retry number attempt (0-based):
// 200ms doubled per attempt, capped at 5s.
func Backoff(attempt int) time.Duration {
	return backoff(BaseDelay, MaxDelay, attempt)
}

func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// Do runs fn until it succeeds, retries are exhausted or ctx ends.
// Each attempt gets its own timeout derived from ctx. Errors that cannot
// succeed on a second try stop the loop at once; see Retryable.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(p.baseDelay, p.maxDelay, attempt-1)
			logger.Debug("%s: attempt %d failed (%v), retrying in %s", op, attempt, lastErr, delay)
			if err := p.wait(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit: %w", op, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		// The caller gave up; retrying cannot help.
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, errors.Join(ctx.Err(), err))
		}
		if !Retryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, p.maxRetries+1, lastErr)
}

// Retryable reports whether err is worth another attempt. Provider replies
// are retried only for 408, 429 and 5xx, and configuration errors never are.
// Transport failures, attempt timeouts and untyped errors are retried.
func Retryable(err error) bool {
	if errors.Is(err, domain.ErrConfiguration) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *domain.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
