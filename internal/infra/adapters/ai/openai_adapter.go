package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter with the Chat Completions API.
// The same adapter serves OpenAI-compatible backends (Ollama, DeepSeek) through baseURL.
type OpenAIAdapter struct {
	name         string
	client       openai.Client
	defaultModel string
	tokens       *TokenCounter
}

func NewOpenAIAdapter(name, apiKey, baseURL, defaultModel string, timeout time.Duration, tokens *TokenCounter) (*OpenAIAdapter, error) {
	if name == "" {
		name = "openai"
	}
	if apiKey == "" {
		if name == "openai" {
			return nil, errors.New("openai api key empty")
		}
		// local servers ignore the key but the SDK requires one
		apiKey = name
	}
	if tokens == nil {
		tokens = NewTokenCounter()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAIAdapter{
		name:         name,
		client:       openai.NewClient(opts...),
		defaultModel: defaultModel,
		tokens:       tokens,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return o.name }

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	if o.defaultModel == "" {
		return nil, nil
	}
	return []string{o.defaultModel}, nil
}

func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return o.tokens.CountMessages(ctx, modelOrDefault(model, o.defaultModel), messages)
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	model := modelOrDefault(req.Model, o.defaultModel)
	if model == "" {
		return adapter.ChatResult{}, domain.ErrNoModelAvailable
	}
	if len(req.Messages) == 0 {
		return adapter.ChatResult{}, errors.New(o.name + ": no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	var reqOpts []option.RequestOption
	if req.Endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(req.Endpoint))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return adapter.ChatResult{}, err
	}
	if len(resp.Choices) == 0 {
		return adapter.ChatResult{}, domain.ErrEmptyAIResponse
	}

	choice := resp.Choices[0]
	return adapter.ChatResult{
		Content:      strings.TrimSpace(choice.Message.Content),
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage: adapter.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
