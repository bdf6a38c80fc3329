package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter is used in dev mode when no provider key is configured.
// It answers with a canned reply and reports usage from the local token counter.
type NoopAIAdapter struct {
	tokens *TokenCounter
	delay  time.Duration
	log    *zerolog.Logger
}

func NewNoopAIAdapter(tokens *TokenCounter, logger *zerolog.Logger) *NoopAIAdapter {
	if tokens == nil {
		tokens = NewTokenCounter()
	}
	return &NoopAIAdapter{tokens: tokens, delay: 100 * time.Millisecond, log: logger}
}

const noopReply = "Thank you for your message. A member of our team will get back to you shortly."

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-ai-model"}, nil
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return a.tokens.CountMessages(ctx, model, messages)
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return adapter.ChatResult{}, ctx.Err()
	}
	in, _ := a.CountTokens(ctx, req.Model, req.Messages)
	out := a.tokens.Count(req.Model, noopReply)
	if a.log != nil {
		a.log.Debug().Str("model", req.Model).Int("prompt_tokens", in).Msg("noop ai reply")
	}
	return adapter.ChatResult{
		Content:      noopReply,
		FinishReason: "stop",
		Usage:        adapter.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}
