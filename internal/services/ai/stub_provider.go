package ai

import (
	"context"
	"strings"
	"sync"
)

// StubText is what the stub answers with when no API key is configured.
const StubText = "This is a test response."

// StubProvider is a deterministic Provider. Fragments default to StubText as
// a single fragment. Err, when set, is returned after FailAfter fragments.
type StubProvider struct {
	Fragments []string
	Reply     string
	Err       error
	FailAfter int

	mu       sync.Mutex
	requests []CompletionRequest
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	p.record(req)
	if err := ctx.Err(); err != nil {
		return "", NewProviderError("completion", "context done", err)
	}
	if p.Err != nil {
		return "", p.Err
	}
	if p.Reply != "" {
		return p.Reply, nil
	}
	return strings.Join(p.fragments(), ""), nil
}

func (p *StubProvider) Stream(ctx context.Context, req CompletionRequest, onDelta func(string) error) error {
	p.record(req)
	for i, fragment := range p.fragments() {
		if p.Err != nil && i == p.FailAfter {
			return p.Err
		}
		if err := ctx.Err(); err != nil {
			return NewProviderError("streaming", "context done", err)
		}
		if err := onDelta(fragment); err != nil {
			return err
		}
	}
	if p.Err != nil {
		return p.Err
	}
	return nil
}

// Requests returns every request the stub has seen.
func (p *StubProvider) Requests() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompletionRequest(nil), p.requests...)
}

func (p *StubProvider) fragments() []string {
	if len(p.Fragments) == 0 {
		return []string{StubText}
	}
	return p.Fragments
}

func (p *StubProvider) record(req CompletionRequest) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
}
