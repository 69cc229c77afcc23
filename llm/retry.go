package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/marketlyhq/contentscout/types"
)

const (
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
)

type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func normalizeRetryPolicy(in RetryPolicy) RetryPolicy {
	out := in
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.BaseBackoff <= 0 {
		out.BaseBackoff = defaultBaseBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = defaultMaxBackoff
	}
	if out.MaxBackoff < out.BaseBackoff {
		out.MaxBackoff = out.BaseBackoff
	}
	return out
}

func (p RetryPolicy) backoffForAttempt(retryNumber int) time.Duration {
	if retryNumber < 1 {
		retryNumber = 1
	}
	delay := p.BaseBackoff
	for i := 1; i < retryNumber; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

type retryProvider struct {
	inner  Provider
	policy RetryPolicy
}

// WithRetries wraps a provider with bounded exponential-backoff retries.
// The research loop itself never retries generation; callers that want
// retries wrap the provider before handing it to the loop.
func WithRetries(inner Provider, policy RetryPolicy) Provider {
	return &retryProvider{inner: inner, policy: normalizeRetryPolicy(policy)}
}

func (r *retryProvider) Name() string { return r.inner.Name() }

func (r *retryProvider) Capabilities() Capabilities { return r.inner.Capabilities() }

func (r *retryProvider) Generate(ctx context.Context, req types.Request) (types.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == r.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return types.Response{}, ctx.Err()
		case <-time.After(r.policy.backoffForAttempt(attempt)):
		}
	}
	return types.Response{}, fmt.Errorf("provider %q failed after %d attempt(s): %w", r.inner.Name(), r.policy.MaxAttempts, lastErr)
}
