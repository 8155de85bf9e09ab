package llm

import (
	"context"
	"errors"
	"testing"

	"halbot/internal/domain"
	"halbot/internal/infra/config"
)

// flakyProvider fails until fixed.
type flakyProvider struct {
	failing bool
	calls   int
}

func (f *flakyProvider) Name() string  { return "flaky" }
func (f *flakyProvider) Emoji() string { return "📘" }

func (f *flakyProvider) Submit(_ context.Context, _ []domain.Message, _ []domain.ToolSchema, _ domain.SubmitOptions) (*domain.ModelResponse, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("backend down")
	}
	return &domain.ModelResponse{Text: "ok"}, nil
}

func submitOnce(p domain.Provider) (*domain.ModelResponse, error) {
	return p.Submit(context.Background(),
		[]domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		nil, domain.SubmitOptions{})
}

func TestCircuitBreaker_PassThrough(t *testing.T) {
	inner := &flakyProvider{}
	p := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, nopLogger())

	resp, err := submitOnce(p)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if p.Name() != "flaky" || p.Emoji() != "📘" {
		t.Error("identity must delegate to the wrapped provider")
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{failing: true}
	p := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{MaxFailures: 3}, nopLogger())

	for i := 0; i < 3; i++ {
		if _, err := submitOnce(p); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	// Circuit is now open: the provider must not be reached.
	before := inner.calls
	_, err := submitOnce(p)
	if err == nil {
		t.Fatal("expected fail-fast error")
	}
	if inner.calls != before {
		t.Errorf("provider called while circuit open: %d -> %d", before, inner.calls)
	}
}
