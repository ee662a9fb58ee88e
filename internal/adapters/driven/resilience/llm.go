package resilience

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

// Ensure LLM implements the interface.
var _ driven.LLMService = (*LLM)(nil)

// LLM retries completions under a Policy.
type LLM struct {
	next   driven.LLMService
	policy *Policy
}

// WrapLLM decorates next with policy.
func WrapLLM(next driven.LLMService, policy *Policy) *LLM {
	return &LLM{next: next, policy: policy}
}

// Complete sends the request, retrying transient failures.
func (l *LLM) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	var out string
	err := l.policy.Do(ctx, "complete", func(ctx context.Context) error {
		reply, err := l.next.Complete(ctx, req)
		if err != nil {
			return err
		}
		out = reply
		return nil
	})
	return out, err
}

// ModelName returns the name of the LLM model being used.
func (l *LLM) ModelName() string { return l.next.ModelName() }

// Ping is not retried.
func (l *LLM) Ping(ctx context.Context) error { return l.next.Ping(ctx) }

// Close releases resources.
func (l *LLM) Close() error { return l.next.Close() }
