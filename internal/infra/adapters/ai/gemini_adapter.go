// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	tokens       *TokenCounter
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, tokens *TokenCounter) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = NewTokenCounter()
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, tokens: tokens}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	if g.defaultModel == "" {
		return nil, nil
	}
	return []string{g.defaultModel}, nil
}

// CountTokens asks the API first and falls back to the local estimate.
func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	_, contents := toGenAIContents(messages)
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(model, g.defaultModel), contents, nil)
	if err != nil || resp == nil {
		return g.tokens.CountMessages(ctx, model, messages)
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	model := modelOrDefault(req.Model, g.defaultModel)
	if model == "" {
		return adapter.ChatResult{}, domain.ErrNoModelAvailable
	}
	system, contents := toGenAIContents(req.Messages)
	if len(contents) == 0 {
		return adapter.ChatResult{}, errors.New("gemini: no messages")
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return adapter.ChatResult{}, err
	}

	out := adapter.ChatResult{Content: strings.TrimSpace(resp.Text())}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = normalizeFinishReason(string(resp.Candidates[0].FinishReason))
	}
	if resp.UsageMetadata != nil {
		out.Usage = adapter.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// --- internal ---

// toGenAIContents splits system messages into a system instruction; Gemini has no system role in contents.
func toGenAIContents(msgs []adapter.Message) (*genai.Content, []*genai.Content) {
	var system []string
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			system = append(system, m.Content)
		case "assistant", "model":
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, out
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}

// normalizeFinishReason maps provider specific reasons onto the OpenAI vocabulary.
func normalizeFinishReason(r string) string {
	switch strings.ToUpper(r) {
	case "MAX_TOKENS", "LENGTH":
		return "length"
	default:
		return strings.ToLower(r)
	}
}
