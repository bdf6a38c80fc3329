//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
)

type resetRepo struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (r *resetRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AccountMetadata, error) {
	return nil, nil
}
func (r *resetRepo) FindBySessionID(ctx context.Context, tx repository.Tx, s string) (*model.AccountMetadata, error) {
	return nil, nil
}
func (r *resetRepo) IncrementDailyResponses(ctx context.Context, tx repository.Tx, id int64) error {
	return nil
}
func (r *resetRepo) ResetDailyCounters(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, before)
	return 3, r.err
}

func (r *resetRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestCounterResetWorker_CutoffIsStartOfDay(t *testing.T) {
	l := zerolog.Nop()
	repo := &resetRepo{}
	w := NewCounterResetWorker(time.Hour, repo, &l)
	w.now = func() time.Time { return time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC) }

	w.tick(context.Background())

	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if len(repo.cutoffs) != 1 || !repo.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, repo.cutoffs)
	}
}

func TestCounterResetWorker_RunStopsOnCancel(t *testing.T) {
	l := zerolog.Nop()
	repo := &resetRepo{err: errors.New("db down")}
	w := NewCounterResetWorker(10*time.Millisecond, repo, &l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for repo.calls() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
