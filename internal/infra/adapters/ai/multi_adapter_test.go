package ai_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
	ai "whatsapp-ai-agent/internal/infra/adapters/ai"
)

type stubAI struct {
	name         string
	ctN          int
	cwuN         int
	lastModelCT  string
	lastModelCWU string
}

func (s *stubAI) Name() string { return s.name }
func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}
func (s *stubAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	s.ctN++
	s.lastModelCT = model
	return 1, nil
}
func (s *stubAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	s.cwuN++
	s.lastModelCWU = req.Model
	return adapter.ChatResult{Content: "ok", Usage: adapter.Usage{PromptTokens: 1, CompletionTokens: 1}}, nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}
	ollama := &stubAI{name: "ollama"}

	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem, "ollama": ollama},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _ = m.CountTokens(ctx, "custom-x", nil)
	if gem.ctN != 1 || open.ctN != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.ctN, gem.ctN)
	}

	// request provider wins over heuristics
	_, _ = m.ChatWithUsage(ctx, adapter.ChatRequest{Provider: "ollama", Model: "gpt-4o-mini"})
	if ollama.cwuN != 1 || open.cwuN != 0 {
		t.Fatalf("explicit provider should route to ollama")
	}

	// gpt-* -> openai
	_, _ = m.ChatWithUsage(ctx, adapter.ChatRequest{Model: "gpt-4o-mini"})
	if open.cwuN != 1 {
		t.Fatalf("heuristic gpt-* should go openai")
	}

	// gemini-* -> gemini
	_, _ = m.ChatWithUsage(ctx, adapter.ChatRequest{Model: "gemini-1.5-flash"})
	if gem.cwuN != 1 || gem.lastModelCWU != "gemini-1.5-flash" {
		t.Fatalf("heuristic gemini-* should go gemini")
	}

	// unknown -> default provider (openai)
	open.ctN = 0
	_, _ = m.CountTokens(ctx, "unknown", nil)
	if open.ctN != 1 {
		t.Fatalf("unknown model should go to default provider (openai)")
	}
}

func TestRouting_UnknownExplicitProvider(t *testing.T) {
	m := ai.NewMultiAIAdapter("openai", map[string]adapter.AIServiceAdapter{"openai": &stubAI{name: "openai"}}, nil)
	_, err := m.ChatWithUsage(context.Background(), adapter.ChatRequest{Provider: "anthropic", Model: "x"})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

type slowAI struct {
	stubAI
	inFlight int32
	maxSeen  int32
}

func (s *slowAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)
	return adapter.ChatResult{Content: "ok"}, nil
}

func TestLimitedAI_BoundsConcurrency(t *testing.T) {
	inner := &slowAI{}
	l := ai.NewLimitedAI(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.ChatWithUsage(context.Background(), adapter.ChatRequest{Model: "m"})
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&inner.maxSeen); got > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", got)
	}
}

type blockingAI struct {
	stubAI
	release chan struct{}
	entered chan struct{}
}

func (b *blockingAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return adapter.ChatResult{Content: "ok"}, nil
}

func TestLimitedAI_RespectsContextWhileWaiting(t *testing.T) {
	inner := &blockingAI{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	l := ai.NewLimitedAI(inner, 1)

	done := make(chan struct{})
	go func() {
		_, _ = l.ChatWithUsage(context.Background(), adapter.ChatRequest{})
		close(done)
	}()
	<-inner.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.ChatWithUsage(ctx, adapter.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while waiting for a slot, got %v", err)
	}
	close(inner.release)
	<-done
}

func TestNoopAIAdapter_ReportsUsage(t *testing.T) {
	a := ai.NewNoopAIAdapter(ai.NewTokenCounter(), nil)
	res, err := a.ChatWithUsage(context.Background(), adapter.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []adapter.Message{{Role: "user", Content: "Bonjour, quel est le prix ?"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Content == "" || res.Usage.PromptTokens == 0 || res.Usage.TotalTokens != res.Usage.PromptTokens+res.Usage.CompletionTokens {
		t.Fatalf("unexpected result %+v", res)
	}
}
