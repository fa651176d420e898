// File: internal/services/ai/gateway.go
package ai

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/telemetry"
)

// FailureText replaces any upstream failure, both as a terminal fragment and
// as a single-shot reply.
const FailureText = "Error: Unable to generate response."

var errConsumerStopped = errors.New("consumer stopped")

type CompleteOption func(*CompletionRequest)

func WithSystemPrompt(prompt string) CompleteOption {
	return func(r *CompletionRequest) { r.SystemPrompt = prompt }
}

func WithMaxTokens(n int) CompleteOption {
	return func(r *CompletionRequest) { r.MaxTokens = n }
}

func WithModel(model string) CompleteOption {
	return func(r *CompletionRequest) { r.Model = model }
}

type gateway struct {
	provider Provider
	config   *Config
	limiter  *rate.Limiter
	logger   logging.Logger
}

// NewGateway wraps provider with rate limiting and failure translation.
func NewGateway(provider Provider, config *Config, logger logging.Logger) Gateway {
	limit := rate.Inf
	burst := 1
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
		burst = max(1, int(config.RequestsPerSecond))
	}
	return &gateway{
		provider: provider,
		config:   config,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// NewGatewayFromConfig picks the OpenAI provider when an API key is present
// and the deterministic stub otherwise.
func NewGatewayFromConfig(config *Config, logger logging.Logger) Gateway {
	var provider Provider
	if strings.TrimSpace(config.APIKey) == "" {
		logger.Warn("no API key configured, using stub completion provider")
		provider = NewStubProvider()
	} else {
		provider = NewOpenAIProvider(config)
	}
	logger.Info("completion gateway ready", "provider", provider.Name(), "model", config.StreamModel)
	return NewGateway(provider, config, logger)
}

func (g *gateway) CompleteStreaming(ctx context.Context, turns []Turn) iter.Seq[string] {
	var used atomic.Bool
	req := CompletionRequest{
		Model:        g.config.StreamModel,
		SystemPrompt: g.config.SystemPrompt,
		Turns:        turns,
	}

	return func(yield func(string) bool) {
		if used.Swap(true) {
			return
		}
		if err := g.limiter.Wait(ctx); err != nil {
			g.fail("streaming", req.Model, NewProviderError("streaming", "rate limiter wait", err))
			yield(FailureText)
			return
		}

		stopped := false
		yielded := 0
		err := g.provider.Stream(ctx, req, func(fragment string) error {
			if fragment == "" {
				return nil
			}
			yielded++
			if !yield(fragment) {
				stopped = true
				return errConsumerStopped
			}
			return nil
		})
		if stopped {
			return
		}
		// A stream that ends without content counts as a failure, as in Complete.
		if err == nil && yielded == 0 {
			err = NewEmptyResponseError("streaming", req.Model)
		}
		if err != nil {
			g.fail("streaming", req.Model, err)
			yield(FailureText)
		}
	}
}

func (g *gateway) Complete(ctx context.Context, turns []Turn, opts ...CompleteOption) string {
	req := CompletionRequest{Model: g.config.CompleteModel, Turns: turns}
	if req.Model == "" {
		req.Model = g.config.StreamModel
	}
	for _, opt := range opts {
		opt(&req)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		g.fail("completion", req.Model, NewProviderError("completion", "rate limiter wait", err))
		return FailureText
	}

	reply, err := g.provider.Complete(ctx, req)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = NewEmptyResponseError("completion", req.Model)
	}
	if err != nil {
		g.fail("completion", req.Model, err)
		return FailureText
	}
	return reply
}

func (g *gateway) fail(operation, model string, err error) {
	telemetry.UpstreamFailures.WithLabelValues(operation).Inc()

	var aiErr *AIError
	if errors.As(err, &aiErr) {
		g.logger.Error("completion failed",
			"provider", g.provider.Name(),
			"operation", operation,
			"model", model,
			"type", aiErr.Type,
			"code", aiErr.Code,
			"error", err)
		return
	}
	g.logger.Error("completion failed", "provider", g.provider.Name(), "operation", operation, "model", model, "error", err)
}
