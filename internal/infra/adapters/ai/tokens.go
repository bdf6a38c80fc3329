package ai

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"whatsapp-ai-agent/internal/domain/ports/adapter"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates token counts locally with tiktoken. Models tiktoken
// does not know are counted with cl100k_base, which is close enough for
// cost estimation on non-OpenAI providers.
type TokenCounter struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			enc = nil
		}
	}
	c.cache[model] = enc
	return enc
}

// Count returns the token count of text; without an encoding it falls back to ~4 bytes per token.
func (c *TokenCounter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// CountMessages adds the per-message framing overhead used by chat models.
func (c *TokenCounter) CountMessages(_ context.Context, model string, messages []adapter.Message) (int, error) {
	total := 3
	for _, m := range messages {
		total += 4 + c.Count(model, m.Content)
	}
	return total, nil
}
