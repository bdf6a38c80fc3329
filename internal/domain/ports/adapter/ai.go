package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatRequest carries one completion call. Provider may be empty; routers then
// infer it from the model name.
type ChatRequest struct {
	Provider    string
	Model       string
	Endpoint    string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// ChatResult is the assistant text plus usage as reported by the provider.
type ChatResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// AIServiceAdapter is the port for LLM chat.
type AIServiceAdapter interface {
	Name() string
	ListModels(ctx context.Context) ([]string, error)

	// CountTokens returns prompt tokens for the messages, best-effort when the
	// provider has no exact counter.
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	ChatWithUsage(ctx context.Context, req ChatRequest) (ChatResult, error)
}
