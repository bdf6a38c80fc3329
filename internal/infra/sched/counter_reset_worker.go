package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/infra/metrics"
)

// CounterResetWorker periodically zeroes the daily AI response counters of accounts
// whose counters were last reset before the start of the current day.
type CounterResetWorker struct {
	interval time.Duration
	accounts repository.AccountRepository
	now      func() time.Time
	log      *zerolog.Logger
}

func NewCounterResetWorker(interval time.Duration, accounts repository.AccountRepository, logger *zerolog.Logger) *CounterResetWorker {
	l := logger.With().Str("component", "CounterResetWorker").Logger()
	return &CounterResetWorker{
		interval: interval,
		accounts: accounts,
		now:      time.Now,
		log:      &l,
	}
}

func (w *CounterResetWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting counter reset worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping counter reset worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CounterResetWorker) tick(ctx context.Context) {
	now := w.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := w.accounts.ResetDailyCounters(ctx, repository.NoTX, midnight)
	if err != nil {
		w.log.Error().Err(err).Msg("counter reset error")
		return
	}
	if n > 0 {
		metrics.AddDailyCountersReset(n)
		w.log.Info().Int64("count", n).Msg("daily counters reset")
	}
}
