package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/config"
	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/event"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
	red "whatsapp-ai-agent/internal/infra/redis"
)

const releaseTimeout = 2 * time.Second

// Publisher is the part of the event dispatcher the orchestrator needs.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

// MessageGuard claims inbound message ids for the dedup window.
type MessageGuard interface {
	Claim(ctx context.Context, accountID int64, messageID string) (string, error)
	Release(ctx context.Context, accountID int64, messageID, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// OrchestratorDeps groups the collaborators of the orchestrator. Guard and Limiter are optional.
type OrchestratorDeps struct {
	Accounts repository.AccountRepository
	Store    *MessageStore
	Prompts  *PromptBuilder
	AI       AIProcessor
	Events   Publisher
	Guard    MessageGuard
	Limiter  RateLimiter
}

// Orchestrator decides whether an inbound message gets an AI reply and produces it.
// Its public operations never return an error: every failure below eligibility
// degrades into a processed message without AI reply.
type Orchestrator struct {
	deps  OrchestratorDeps
	cfg   config.AgentConfig
	delay func(model.ResponseTime) time.Duration
	log   *zerolog.Logger
}

func NewOrchestrator(deps OrchestratorDeps, cfg config.AgentConfig, logger *zerolog.Logger) *Orchestrator {
	l := logger.With().Str("component", "Orchestrator").Logger()
	return &Orchestrator{deps: deps, cfg: cfg, delay: typingDelay, log: &l}
}

func (o *Orchestrator) ProcessIncomingMessage(ctx context.Context, meta *model.AccountMetadata, req model.MessageRequest) model.MessageResponse {
	defer logging.TraceDuration(o.log, "Orchestrator.ProcessIncomingMessage")()
	start := time.Now()

	account, reason := o.loadAccount(ctx, meta)
	if reason != model.SkipNone {
		metrics.IncMessageOutcome(string(reason))
		return model.Skipped(reason)
	}
	contact := resolveContact(req.From)
	ctx = logging.WithAccountID(ctx, account.AccountID)
	ctx = logging.WithContact(ctx, contact.ID)
	log := logging.With(ctx, o.log)

	if reason := o.checkEligibility(account, req, contact); reason != model.SkipNone {
		return o.skip(ctx, account, req, reason)
	}
	if !o.allow(ctx, account, contact) {
		metrics.IncRateLimitTriggered()
		return o.skip(ctx, account, req, model.SkipRateLimited)
	}

	token, dup := o.claim(ctx, account, req)
	if dup {
		return o.skip(ctx, account, req, model.SkipDuplicate)
	}

	history, conv := o.history(ctx, account, contact)
	prompt := o.deps.Prompts.BuildPrompt(account, req.Body, history)

	resp, err := o.deps.AI.Generate(ctx, account, prompt)
	if err != nil {
		log.Error().Err(err).Str("message_id", req.ID).Msg("ai generation failed, replying without ai response")
		o.release(ctx, account, req, token)
		return o.skip(ctx, account, req, model.SkipAIFailed)
	}

	o.publish(ctx, event.MessageProcessed{
		SessionID:     account.SessionID,
		AccountID:     account.AccountID,
		FromPhone:     contact.Phone,
		WasSuccessful: true,
	})
	o.publish(ctx, event.AIResponseGenerated{
		Account:          account,
		Conversation:     conv,
		Message:          req,
		Response:         resp,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})

	log.Info().
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Dur("elapsed", time.Since(start)).
		Msg("message answered")
	return model.Answered(resp.Content, account.ResponseTime, o.delay(account.ResponseTime))
}

// ProcessSimulatedMessage runs the pipeline for previews: no storage, no events,
// no duplicate guard and no rate limit. The caller supplies the history.
func (o *Orchestrator) ProcessSimulatedMessage(ctx context.Context, meta *model.AccountMetadata, userMessage string, history []model.HistoryEntry) model.MessageResponse {
	account, reason := o.loadAccount(ctx, meta)
	if reason != model.SkipNone {
		return model.Skipped(reason)
	}
	ctx = logging.WithAccountID(ctx, account.AccountID)
	req := model.MessageRequest{ID: "simulated", Body: userMessage, Type: "text"}
	if reason := o.checkEligibility(account, req, contactRef{}); reason != model.SkipNone {
		return model.Skipped(reason)
	}
	prompt := o.deps.Prompts.BuildPrompt(account, userMessage, history)
	resp, err := o.deps.AI.Generate(ctx, account, prompt)
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Msg("simulated generation failed")
		return model.Skipped(model.SkipAIFailed)
	}
	return model.Answered(resp.Content, account.ResponseTime, o.delay(account.ResponseTime))
}

// loadAccount reads the account fresh from the store, by id when known, else by session.
func (o *Orchestrator) loadAccount(ctx context.Context, meta *model.AccountMetadata) (*model.AccountMetadata, model.SkipReason) {
	if meta == nil {
		return nil, model.SkipAccountNotFound
	}
	var (
		account *model.AccountMetadata
		err     error
	)
	switch {
	case meta.AccountID > 0:
		account, err = o.deps.Accounts.FindByID(ctx, repository.NoTX, meta.AccountID)
	case meta.SessionID != "":
		account, err = o.deps.Accounts.FindBySessionID(ctx, repository.NoTX, meta.SessionID)
	default:
		return nil, model.SkipAccountNotFound
	}
	if errors.Is(err, domain.ErrNotFound) || (err == nil && account == nil) {
		logging.With(ctx, o.log).Warn().Str("session_id", meta.SessionID).Int64("account_id", meta.AccountID).Msg("account not found")
		return nil, model.SkipAccountNotFound
	}
	if err != nil {
		logging.With(ctx, o.log).Error().Err(err).Str("session_id", meta.SessionID).Msg("account lookup failed")
		return nil, model.SkipAccountUnavailable
	}
	if account.SessionName == "" {
		account.SessionName = meta.SessionName
	}
	return account, model.SkipNone
}

// checkEligibility applies the gates in order; the first failing gate wins.
func (o *Orchestrator) checkEligibility(account *model.AccountMetadata, req model.MessageRequest, contact contactRef) model.SkipReason {
	body := strings.TrimSpace(req.Body)
	switch {
	case !account.IsAgentActive():
		return model.SkipAgentDisabled
	case (req.IsGroup || contact.IsGroup) && !o.cfg.AllowGroups:
		return model.SkipGroupMessage
	case body == "":
		return model.SkipEmptyMessage
	case model.MatchesAnyWord(body, account.IgnoreWordList()):
		return model.SkipIgnoreWord
	}
	if triggers := account.TriggerWordList(); len(triggers) > 0 && !model.MatchesAnyWord(body, triggers) {
		return model.SkipNoTriggerWord
	}
	if account.HasReachedDailyLimit() {
		return model.SkipDailyLimit
	}
	return model.SkipNone
}

// allow applies the per-contact rate limit. Redis errors let the message through.
func (o *Orchestrator) allow(ctx context.Context, account *model.AccountMetadata, contact contactRef) bool {
	if o.deps.Limiter == nil || o.cfg.RateLimit <= 0 {
		return true
	}
	ok, err := o.deps.Limiter.Allow(ctx, red.ContactKey(account.AccountID, contact.ID), o.cfg.RateLimit, o.cfg.RateWindow)
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Msg("rate limiter unavailable, allowing message")
		return true
	}
	return ok
}

// claim returns the guard token and whether the message is a duplicate. Redis errors fail open.
func (o *Orchestrator) claim(ctx context.Context, account *model.AccountMetadata, req model.MessageRequest) (string, bool) {
	if o.deps.Guard == nil || req.ID == "" {
		return "", false
	}
	token, err := o.deps.Guard.Claim(ctx, account.AccountID, req.ID)
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Msg("message guard unavailable, processing without dedup")
		return "", false
	}
	return token, token == ""
}

func (o *Orchestrator) release(ctx context.Context, account *model.AccountMetadata, req model.MessageRequest, token string) {
	if o.deps.Guard == nil || token == "" {
		return
	}
	// the request context is often already cancelled when the AI call failed
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := o.deps.Guard.Release(rctx, account.AccountID, req.ID, token); err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Msg("failed to release message guard")
	}
}

// history is best effort: a failed lookup yields an empty history.
func (o *Orchestrator) history(ctx context.Context, account *model.AccountMetadata, contact contactRef) ([]model.HistoryEntry, *model.Conversation) {
	if o.deps.Store == nil {
		return nil, nil
	}
	h, conv, err := o.deps.Store.History(ctx, account.AccountID, contact.ID, o.cfg.HistoryLimit)
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Msg("history unavailable, continuing without it")
		return nil, conv
	}
	return h, conv
}

func (o *Orchestrator) skip(ctx context.Context, account *model.AccountMetadata, req model.MessageRequest, reason model.SkipReason) model.MessageResponse {
	logging.With(ctx, o.log).Debug().Str("reason", string(reason)).Str("message_id", req.ID).Msg("message not answered")
	o.publish(ctx, event.MessageUnanswered{Account: account, Message: req, Reason: reason})
	return model.Skipped(reason)
}

func (o *Orchestrator) publish(ctx context.Context, e event.Event) {
	if o.deps.Events != nil {
		o.deps.Events.Publish(ctx, e)
	}
}

// typingDelay draws the advisory delay for the response-time profile.
func typingDelay(rt model.ResponseTime) time.Duration {
	min, max := rt.DelayRange()
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
