// File: internal/services/ai/interface.go
package ai

import (
	"context"
	"iter"
)

// Role is the upstream vocabulary for a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of a conversation sent upstream.
type Turn struct {
	Role    Role
	Content string
}

// CompletionRequest is what a Provider receives. SystemPrompt is optional.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Turns        []Turn
}

// Provider talks to a model and reports failures as errors.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream calls onDelta for each non-empty fragment. An error returned by
	// onDelta stops the stream and is returned unchanged.
	Stream(ctx context.Context, req CompletionRequest, onDelta func(string) error) error
	Name() string
}

// Gateway is the only completion surface the rest of the service sees.
// Failures never escape it: they surface as FailureText.
type Gateway interface {
	// CompleteStreaming returns a single-use sequence of non-empty fragments.
	CompleteStreaming(ctx context.Context, turns []Turn) iter.Seq[string]
	Complete(ctx context.Context, turns []Turn, opts ...CompleteOption) string
}
