package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/event"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
)

var _ event.Listener = (*UsageTracker)(nil)

// UsageTracker writes one usage log per AI response. It never reports failure to the publisher.
type UsageTracker struct {
	convs repository.ConversationRepository
	logs  repository.UsageLogRepository
	log   *zerolog.Logger
}

func NewUsageTracker(convs repository.ConversationRepository, logs repository.UsageLogRepository, logger *zerolog.Logger) *UsageTracker {
	l := logger.With().Str("component", "UsageTracker").Logger()
	return &UsageTracker{convs: convs, logs: logs, log: &l}
}

func (u *UsageTracker) Handle(ctx context.Context, e event.Event) {
	ev, ok := e.(event.AIResponseGenerated)
	if !ok || ev.Account == nil || ev.Response == nil {
		return
	}
	contact := resolveContact(ev.Message.From).ID
	log := logging.With(ctx, u.log).With().
		Int64("account_id", ev.Account.AccountID).
		Str("contact", contact).
		Str("message_id", ev.Message.ID).
		Logger()

	if ev.Response.Metadata.Costs == nil {
		metrics.IncUsageLog("skipped")
		log.Warn().Str("model", ev.Response.Model).Msg("ai response carries no costs, usage not tracked")
		return
	}

	entry := model.NewUsageLog(ev.Account.UserID, ev.Account.AccountID, ev.Response)
	if ev.ProcessingTimeMs > 0 {
		entry.ResponseTimeMs = ev.ProcessingTimeMs
	}

	// conversation and message may not be stored yet; the log is written without the links then
	conv := ev.Conversation
	if conv == nil {
		c, err := u.convs.FindByContact(ctx, repository.NoTX, ev.Account.AccountID, contact)
		switch {
		case err == nil:
			conv = c
		case !errors.Is(err, domain.ErrNotFound):
			log.Warn().Err(err).Msg("conversation lookup failed")
		}
	}
	if conv != nil {
		entry.ConversationID = &conv.ID
		msg, err := u.convs.FindMessageByProviderID(ctx, repository.NoTX, conv.ID, ev.Message.ID)
		switch {
		case err == nil:
			entry.MessageID = &msg.ID
		case !errors.Is(err, domain.ErrNotFound):
			log.Warn().Err(err).Msg("message lookup failed")
		}
	}

	if err := u.logs.Save(ctx, repository.NoTX, entry); err != nil {
		metrics.IncUsageLog("error")
		log.Error().Err(err).Msg("failed to save usage log")
		return
	}
	metrics.IncUsageLog("saved")
	log.Debug().Str("usage_log_id", entry.ID).Float64("cost_usd", entry.CostUSD).Msg("usage tracked")
}
