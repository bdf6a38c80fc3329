package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/config"
	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
)

// Compile-time check
var _ AIProcessor = (*aiProcessor)(nil)

// AIProcessor turns a built prompt into a normalized AI response with usage and costs.
type AIProcessor interface {
	Generate(ctx context.Context, account *model.AccountMetadata, prompt string) (*model.AIResponse, error)
}

const (
	confidenceComplete  = 0.9
	confidenceTruncated = 0.5
)

type aiProcessor struct {
	ai       adapter.AIServiceAdapter
	resolver *ModelResolver
	cfg      config.AIConfig
	usdToXAF float64
	log      *zerolog.Logger
}

func NewAIProcessor(ai adapter.AIServiceAdapter, resolver *ModelResolver, cfg config.AIConfig, billing config.BillingConfig, logger *zerolog.Logger) *aiProcessor {
	l := logger.With().Str("component", "AIProcessor").Logger()
	return &aiProcessor{ai: ai, resolver: resolver, cfg: cfg, usdToXAF: billing.USDToXAF, log: &l}
}

func (p *aiProcessor) Generate(ctx context.Context, account *model.AccountMetadata, prompt string) (*model.AIResponse, error) {
	defer logging.TraceDuration(p.log, "AIProcessor.Generate")()
	log := logging.With(ctx, p.log)
	start := time.Now()

	m, source, err := p.resolver.Resolve(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.IncModelResolution(string(source))

	maxTokens := m.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := m.Temperature
	if temperature <= 0 {
		temperature = p.cfg.Temperature
	}

	msgs := []adapter.Message{{Role: string(model.RoleUser), Content: prompt}}
	callCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := p.ai.ChatWithUsage(callCtx, adapter.ChatRequest{
		Provider:    m.Provider,
		Model:       m.ModelIdentifier,
		Endpoint:    m.Endpoint,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveChatUsage(m.Provider, m.ModelIdentifier, 0, 0, 0, 0, latency, false)
		return nil, fmt.Errorf("ai chat %s/%s: %w", m.Provider, m.ModelIdentifier, err)
	}

	content := strings.TrimSpace(res.Content)
	if content == "" {
		metrics.ObserveChatUsage(m.Provider, m.ModelIdentifier, 0, 0, 0, 0, latency, false)
		return nil, domain.ErrEmptyAIResponse
	}

	usage := res.Usage
	if usage.PromptTokens <= 0 {
		usage.PromptTokens = p.estimate(ctx, m.ModelIdentifier, prompt)
	}
	if usage.CompletionTokens <= 0 {
		usage.CompletionTokens = p.estimate(ctx, m.ModelIdentifier, content)
	}
	if usage.TotalTokens <= 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	costs := m.Pricing.Compute(usage.PromptTokens, usage.CompletionTokens, p.usdToXAF)
	confidence := confidenceComplete
	if res.FinishReason == "length" {
		confidence = confidenceTruncated
	}

	metrics.ObserveChatUsage(m.Provider, m.ModelIdentifier, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, costs.TotalMicros(), latency, true)
	log.Debug().
		Str("model", m.ModelIdentifier).
		Str("source", string(source)).
		Int("tokens", usage.TotalTokens).
		Int64("latency_ms", latency).
		Msg("ai response generated")

	return &model.AIResponse{
		Content:      content,
		TokensUsed:   usage.TotalTokens,
		Model:        m.ModelIdentifier,
		Provider:     m.Provider,
		Confidence:   confidence,
		FinishReason: res.FinishReason,
		Metadata: model.AIResponseMetadata{
			Costs:            costs,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			LatencyMs:        latency,
			ModelSource:      source,
			ModelID:          m.ID,
		},
	}, nil
}

// estimate counts tokens locally when the provider reported none.
func (p *aiProcessor) estimate(ctx context.Context, modelName, text string) int {
	n, err := p.ai.CountTokens(ctx, modelName, []adapter.Message{{Role: string(model.RoleUser), Content: text}})
	if err != nil || n <= 0 {
		return (len(text) + 3) / 4
	}
	return n
}
