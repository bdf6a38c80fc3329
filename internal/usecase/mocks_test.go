//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/event"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

// mockTxManager runs fn directly; rollback is simulated by the repos' own error injection.
type mockTxManager struct{ calls int }

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	return fn(ctx, nil)
}

// ---- accounts ----

type memAccountRepo struct {
	mu        sync.Mutex
	byID      map[int64]*model.AccountMetadata
	findErr   error
	increment map[int64]int
}

func newMemAccountRepo(accounts ...*model.AccountMetadata) *memAccountRepo {
	r := &memAccountRepo{byID: map[int64]*model.AccountMetadata{}, increment: map[int64]int{}}
	for _, a := range accounts {
		r.byID[a.AccountID] = a
	}
	return r
}

func (r *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AccountMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.AccountMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.byID {
		if a.SessionID == sessionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAccountRepo) IncrementDailyResponses(ctx context.Context, tx repository.Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.increment[id]++
	if a, ok := r.byID[id]; ok {
		a.DailyAIResponses++
	}
	return nil
}

func (r *memAccountRepo) ResetDailyCounters(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	return 0, nil
}

// ---- conversations ----

type memConvRepo struct {
	mu        sync.Mutex
	convs     map[string]*model.Conversation // key: account|contact
	msgs      map[string][]*model.StoredMessage
	insertErr error
	findErr   error
	touches   int
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{convs: map[string]*model.Conversation{}, msgs: map[string][]*model.StoredMessage{}}
}

func convKey(accountID int64, contact string) string {
	return fmt.Sprintf("%d|%s", accountID, contact)
}

func (r *memConvRepo) Upsert(ctx context.Context, tx repository.Tx, c *model.Conversation) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := convKey(c.AccountID, c.ContactIdentifier)
	if existing, ok := r.convs[k]; ok {
		return existing, nil
	}
	cp := *c
	r.convs[k] = &cp
	return &cp, nil
}

func (r *memConvRepo) FindByContact(ctx context.Context, tx repository.Tx, accountID int64, contact string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.convs[convKey(accountID, contact)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *memConvRepo) TouchLastMessage(ctx context.Context, tx repository.Tx, id string, at time.Time, preview string, answered bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touches++
	for _, c := range r.convs {
		if c.ID == id {
			c.LastMessageAt, c.LastMessagePreview = at, preview
			if answered {
				c.UnreadCount = 0
			} else {
				c.UnreadCount++
			}
		}
	}
	return nil
}

func (r *memConvRepo) InsertMessage(ctx context.Context, tx repository.Tx, m *model.StoredMessage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return false, r.insertErr
	}
	for _, existing := range r.msgs[m.ConversationID] {
		if existing.ProviderMessageID == m.ProviderMessageID {
			return false, nil
		}
	}
	cp := *m
	r.msgs[m.ConversationID] = append(r.msgs[m.ConversationID], &cp)
	return true, nil
}

func (r *memConvRepo) FindMessageByProviderID(ctx context.Context, tx repository.Tx, convID, providerID string) (*model.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs[convID] {
		if m.ProviderMessageID == providerID {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memConvRepo) ListRecentMessages(ctx context.Context, tx repository.Tx, convID string, limit int) ([]*model.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := append([]*model.StoredMessage(nil), r.msgs[convID]...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].SentAt.Before(all[j].SentAt) })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memConvRepo) count(direction model.Direction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ms := range r.msgs {
		for _, m := range ms {
			if m.Direction == direction {
				n++
			}
		}
	}
	return n
}

// ---- usage logs ----

type memUsageLogRepo struct {
	mu      sync.Mutex
	logs    []*model.UsageLog
	saveErr error
}

func (r *memUsageLogRepo) Save(ctx context.Context, tx repository.Tx, l *model.UsageLog) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

// ---- ai models ----

type memAIModelRepo struct {
	byID       map[int64]*model.AIModel
	defaultErr error
}

func (r *memAIModelRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AIModel, error) {
	if m, ok := r.byID[id]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memAIModelRepo) FindDefault(ctx context.Context, tx repository.Tx) (*model.AIModel, error) {
	if r.defaultErr != nil {
		return nil, r.defaultErr
	}
	for _, m := range r.byID {
		if m.IsDefault && m.IsActive {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAIModelRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	var out []*model.AIModel
	for _, m := range r.byID {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memAIModelRepo) Save(ctx context.Context, tx repository.Tx, m *model.AIModel) error {
	r.byID[m.ID] = m
	return nil
}

// ---- ai backend ----

type fakeAI struct {
	mu       sync.Mutex
	reply    string
	err      error
	usage    adapter.Usage
	finish   string
	requests []adapter.ChatRequest
}

func (f *fakeAI) Name() string { return "fake" }
func (f *fakeAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"gpt-4o-mini"}, nil
}
func (f *fakeAI) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	n := 0
	for _, m := range msgs {
		n += (len(m.Content) + 3) / 4
	}
	return n, nil
}
func (f *fakeAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return adapter.ChatResult{}, f.err
	}
	return adapter.ChatResult{Content: f.reply, Usage: f.usage, FinishReason: f.finish}, nil
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// stubProcessor is an AIProcessor returning a fixed response and recording prompts.
type stubProcessor struct {
	mu      sync.Mutex
	resp    *model.AIResponse
	err     error
	prompts []string
	// hangUp, when set, cancels the caller's context before the call fails.
	hangUp context.CancelFunc
}

func (s *stubProcessor) Generate(ctx context.Context, account *model.AccountMetadata, prompt string) (*model.AIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.hangUp != nil {
		s.hangUp()
	}
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.resp
	return &cp, nil
}

// ---- events ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name()
	}
	return out
}

// ---- guard / limiter ----

type memGuard struct {
	mu       sync.Mutex
	claimed  map[string]string
	err      error
	released int
	// rejectDone makes Release fail on a finished context, like go-redis does.
	rejectDone bool
}

func newMemGuard() *memGuard { return &memGuard{claimed: map[string]string{}} }

func (g *memGuard) Claim(ctx context.Context, accountID int64, id string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.claimed[id]; ok {
		return "", nil
	}
	g.claimed[id] = "tok-" + id
	return g.claimed[id], nil
}

func (g *memGuard) Release(ctx context.Context, accountID int64, id, token string) error {
	if g.rejectDone && ctx.Err() != nil {
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[id] == token {
		delete(g.claimed, id)
		g.released++
	}
	return nil
}

type countingLimiter struct {
	limit map[string]int
	err   error
}

func (l *countingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.limit[key]++
	return l.limit[key] <= limit, nil
}

// ---- cipher ----

type reverseCipher struct{}

func (reverseCipher) Encrypt(s string) (string, error) { return "enc:" + reverse(s), nil }
func (reverseCipher) Decrypt(s string) (string, error) {
	if len(s) < 4 || s[:4] != "enc:" {
		return "", errors.New("not encrypted")
	}
	return reverse(s[4:]), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
