package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/event"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
)

// StoreExchangeListener persists answered messages and, when enabled, unanswered ones.
type StoreExchangeListener struct {
	store           *MessageStore
	storeUnanswered bool
	log             *zerolog.Logger
}

func NewStoreExchangeListener(store *MessageStore, storeUnanswered bool, logger *zerolog.Logger) *StoreExchangeListener {
	l := logger.With().Str("component", "StoreExchangeListener").Logger()
	return &StoreExchangeListener{store: store, storeUnanswered: storeUnanswered, log: &l}
}

func (s *StoreExchangeListener) Handle(ctx context.Context, e event.Event) {
	var (
		account *model.AccountMetadata
		msg     model.MessageRequest
		resp    *model.AIResponse
	)
	switch ev := e.(type) {
	case event.AIResponseGenerated:
		account, msg, resp = ev.Account, ev.Message, ev.Response
	case event.MessageUnanswered:
		// a duplicate is already stored by the first delivery
		if !s.storeUnanswered || ev.Reason == model.SkipDuplicate {
			return
		}
		account, msg = ev.Account, ev.Message
	default:
		return
	}
	if account == nil {
		return
	}

	res, err := s.store.StoreMessageExchange(ctx, account, msg, resp)
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).
			Int64("account_id", account.AccountID).
			Str("message_id", msg.ID).
			Msg("failed to store message exchange")
		return
	}
	logging.With(ctx, s.log).Debug().
		Str("conversation_id", res.Conversation.ID).
		Bool("created", res.Created).
		Msg("message exchange stored")
}

// ResponseCounterListener bumps the account's daily AI response counter after a successful reply.
type ResponseCounterListener struct {
	accounts repository.AccountRepository
	log      *zerolog.Logger
}

func NewResponseCounterListener(accounts repository.AccountRepository, logger *zerolog.Logger) *ResponseCounterListener {
	l := logger.With().Str("component", "ResponseCounterListener").Logger()
	return &ResponseCounterListener{accounts: accounts, log: &l}
}

func (r *ResponseCounterListener) Handle(ctx context.Context, e event.Event) {
	ev, ok := e.(event.MessageProcessed)
	if !ok || !ev.WasSuccessful || ev.AccountID == 0 {
		return
	}
	if err := r.accounts.IncrementDailyResponses(ctx, repository.NoTX, ev.AccountID); err != nil {
		logging.With(ctx, r.log).Error().Err(err).Int64("account_id", ev.AccountID).Msg("failed to increment daily responses")
	}
}

// AnalyticsListener counts message outcomes.
type AnalyticsListener struct{}

func (AnalyticsListener) Handle(_ context.Context, e event.Event) {
	switch ev := e.(type) {
	case event.MessageProcessed:
		if ev.WasSuccessful {
			metrics.IncMessageOutcome("answered")
		}
	case event.MessageUnanswered:
		metrics.IncMessageOutcome(string(ev.Reason))
	}
}

// RegisterListeners wires the pipeline listeners onto the dispatcher.
func RegisterListeners(d *event.Dispatcher, store *StoreExchangeListener, usage *UsageTracker, counter *ResponseCounterListener) {
	d.Subscribe(event.NameAIResponseGenerated, "store_exchange", store)
	d.Subscribe(event.NameMessageUnanswered, "store_exchange", store)
	d.Subscribe(event.NameAIResponseGenerated, "usage_tracker", usage)
	d.Subscribe(event.NameMessageProcessed, "response_counter", counter)
	d.Subscribe(event.NameMessageProcessed, "analytics", AnalyticsListener{})
	d.Subscribe(event.NameMessageUnanswered, "analytics", AnalyticsListener{})
}
