package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
	"whatsapp-ai-agent/internal/infra/worker"
)

// Listener reacts to one event. Listeners own their errors: they log and
// swallow them, nothing is returned to the publisher.
type Listener interface {
	Handle(ctx context.Context, e Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ctx context.Context, e Event)

func (f ListenerFunc) Handle(ctx context.Context, e Event) { f(ctx, e) }

// Submitter is the part of worker.Pool the dispatcher needs.
type Submitter interface {
	Submit(task worker.Task) error
}

type subscription struct {
	name     string
	listener Listener
}

// Dispatcher fans events out to subscribed listeners. Every listener call
// runs behind its own recover so one failing listener never stops the others.
// With a Submitter the calls run asynchronously, detached from the publisher's
// cancellation; when the pool is saturated they run inline.
type Dispatcher struct {
	mu      sync.RWMutex
	subs    map[string][]subscription
	pool    Submitter
	timeout time.Duration
	log     *zerolog.Logger
}

func NewDispatcher(pool Submitter, timeout time.Duration, logger *zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logger.With().Str("component", "EventDispatcher").Logger()
	return &Dispatcher{
		subs:    make(map[string][]subscription),
		pool:    pool,
		timeout: timeout,
		log:     &l,
	}
}

// Subscribe registers a listener for the event name. listenerName labels logs and metrics.
func (d *Dispatcher) Subscribe(eventName, listenerName string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[eventName] = append(d.subs[eventName], subscription{name: listenerName, listener: l})
}

func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	d.mu.RLock()
	subs := append([]subscription(nil), d.subs[e.Name()]...)
	d.mu.RUnlock()

	for _, s := range subs {
		s := s
		if d.pool == nil {
			d.invoke(ctx, e, s)
			continue
		}
		detached := context.WithoutCancel(ctx)
		err := d.pool.Submit(func(context.Context) error {
			c, cancel := context.WithTimeout(detached, d.timeout)
			defer cancel()
			d.invoke(c, e, s)
			return nil
		})
		if err != nil {
			d.log.Warn().Err(err).Str("event", e.Name()).Str("listener", s.name).Msg("pool unavailable, running listener inline")
			d.invoke(detached, e, s)
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, e Event, s subscription) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncListener(e.Name(), s.name, "panic")
			logging.With(ctx, d.log).Error().
				Str("event", e.Name()).
				Str("listener", s.name).
				Str("panic", fmt.Sprint(rec)).
				Msg("listener panicked")
		}
	}()
	s.listener.Handle(ctx, e)
	metrics.IncListener(e.Name(), s.name, "ok")
}
