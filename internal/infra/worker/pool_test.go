//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// fill queues n counting tasks behind a task that blocks until gate closes.
func fill(t *testing.T, p *Pool, n int, ran *int32, gate chan struct{}) {
	t.Helper()
	started := make(chan struct{})
	if err := p.Submit(func(context.Context) error {
		close(started)
		<-gate
		return nil
	}); err != nil {
		t.Fatalf("submit blocker: %v", err)
	}
	<-started
	for i := 0; i < n; i++ {
		if err := p.Submit(func(context.Context) error {
			atomic.AddInt32(ran, 1)
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
}

func TestPool_StopDrainsQueue(t *testing.T) {
	p := NewPool(1, 16, nopLogger())
	p.Start(context.Background())

	var ran int32
	gate := make(chan struct{})
	fill(t, p, 10, &ran, gate)
	close(gate)
	p.Stop()

	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Fatalf("expected all 10 queued tasks to run, got %d", got)
	}
}

func TestPool_CancelledContextStillDrains(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewPool(1, 16, nopLogger())
		p.Start(ctx)

		var ran int32
		gate := make(chan struct{})
		fill(t, p, 10, &ran, gate)

		cancel()
		close(gate)
		p.Stop()

		if got := atomic.LoadInt32(&ran); got != 10 {
			t.Fatalf("trial %d: queued tasks lost after cancel, ran %d/10", trial, got)
		}
	}
}

func TestPool_SubmitErrors(t *testing.T) {
	p := NewPool(1, 1, nopLogger())
	if err := p.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Fatalf("expected ErrNilTask, got %v", err)
	}
	noop := func(context.Context) error { return nil }
	if err := p.Submit(noop); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPool_PanickingTaskKeepsWorkerAlive(t *testing.T) {
	p := NewPool(1, 4, nopLogger())
	p.Start(context.Background())

	var ran int32
	_ = p.Submit(func(context.Context) error { panic("listener bug") })
	_ = p.Submit(func(context.Context) error { atomic.AddInt32(&ran, 1); return nil })
	p.Stop()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("worker must survive a panicking task")
	}
}
