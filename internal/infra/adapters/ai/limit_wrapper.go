package ai

import (
	"context"
	"time"

	"whatsapp-ai-agent/internal/domain/ports/adapter"
	"whatsapp-ai-agent/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

// limitedAI bounds concurrent chat calls across all providers. Token counting
// and model listing bypass the semaphore.
type limitedAI struct {
	inner adapter.AIServiceAdapter
	sem   chan struct{}
}

func NewLimitedAI(inner adapter.AIServiceAdapter, maxConcurrent int) adapter.AIServiceAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) acquire(ctx context.Context) error {
	start := time.Now()
	select {
	case l.sem <- struct{}{}:
		metrics.AISlotAcquired(time.Since(start).Milliseconds())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedAI) release() {
	<-l.sem
	metrics.AISlotReleased()
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	if err := l.acquire(ctx); err != nil {
		return adapter.ChatResult{}, err
	}
	defer l.release()
	return l.inner.ChatWithUsage(ctx, req)
}

func (l *limitedAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return l.inner.CountTokens(ctx, model, messages)
}
