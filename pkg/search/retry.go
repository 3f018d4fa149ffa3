package search

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryConfig controls the bounded retry applied to transient provider
// failures. Programmer errors (context cancellation) are never retried.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry settings used for search providers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
	}
}

// RetryingProvider wraps a Provider with a failsafe retry policy.
type RetryingProvider struct {
	inner    Provider
	executor failsafe.Executor[[]Result]
}

// WithRetry decorates a provider with bounded exponential-backoff retries.
func WithRetry(inner Provider, cfg RetryConfig) *RetryingProvider {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultRetryConfig()
	}
	policy := retrypolicy.NewBuilder[[]Result]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []Result, err error) bool {
			if err == nil {
				return false
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		Build()
	return &RetryingProvider{inner: inner, executor: failsafe.With(policy)}
}

// Text runs a retried web search.
func (p *RetryingProvider) Text(ctx context.Context, query string, opts Options) ([]Result, error) {
	return p.executor.WithContext(ctx).Get(func() ([]Result, error) {
		return p.inner.Text(ctx, query, opts)
	})
}

// News runs a retried news search.
func (p *RetryingProvider) News(ctx context.Context, query string, opts Options) ([]Result, error) {
	return p.executor.WithContext(ctx).Get(func() ([]Result, error) {
		return p.inner.News(ctx, query, opts)
	})
}
