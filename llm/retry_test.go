package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketlyhq/contentscout/types"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Capabilities() Capabilities { return Capabilities{} }

func (f *flakyProvider) Generate(ctx context.Context, req types.Request) (types.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return types.Response{}, errors.New("transient")
	}
	return types.Response{
		Message: types.Message{Role: types.RoleAssistant, Content: "ok"},
	}, nil
}

func TestWithRetriesRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	p := WithRetries(inner, RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	resp, err := p.Generate(context.Background(), types.Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Message.Content != "ok" || inner.calls != 3 {
		t.Fatalf("content=%q calls=%d", resp.Message.Content, inner.calls)
	}
}

func TestWithRetriesGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := WithRetries(inner, RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	_, err := p.Generate(context.Background(), types.Request{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

func TestWithRetriesRespectsContextCancellation(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := WithRetries(inner, RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Minute, MaxBackoff: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, types.Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}

func TestBackoffDoubling(t *testing.T) {
	p := normalizeRetryPolicy(RetryPolicy{MaxAttempts: 5, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond})
	if got := p.backoffForAttempt(1); got != 100*time.Millisecond {
		t.Errorf("attempt 1 backoff = %v", got)
	}
	if got := p.backoffForAttempt(2); got != 200*time.Millisecond {
		t.Errorf("attempt 2 backoff = %v", got)
	}
	if got := p.backoffForAttempt(4); got != 300*time.Millisecond {
		t.Errorf("attempt 4 backoff must cap at max, got %v", got)
	}
}
