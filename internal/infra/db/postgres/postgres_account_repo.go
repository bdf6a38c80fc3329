package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `
id, user_id, session_id, session_name, agent_enabled, ai_model_id, agent_prompt,
contextual_information, trigger_words, ignore_words, response_time,
daily_ai_responses, daily_ai_response_limit, counters_reset_at`

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, accountID int64) (*model.AccountMetadata, error) {
	q := `SELECT ` + accountColumns + ` FROM whatsapp_accounts WHERE id = $1;`
	return r.findOne(ctx, tx, q, accountID)
}

func (r *accountRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.AccountMetadata, error) {
	q := `SELECT ` + accountColumns + ` FROM whatsapp_accounts WHERE session_id = $1;`
	return r.findOne(ctx, tx, q, sessionID)
}

func (r *accountRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.AccountMetadata, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, mapErr("account find", err)
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapScanErr("account scan", err)
	}
	return a, nil
}

// IncrementDailyResponses bumps the counter and lazily restarts it when the last reset was before today.
func (r *accountRepo) IncrementDailyResponses(ctx context.Context, tx repository.Tx, accountID int64) error {
	const q = `
UPDATE whatsapp_accounts SET
  daily_ai_responses = CASE WHEN counters_reset_at < date_trunc('day', now()) THEN 1 ELSE daily_ai_responses + 1 END,
  counters_reset_at  = CASE WHEN counters_reset_at < date_trunc('day', now()) THEN now() ELSE counters_reset_at END,
  updated_at = now()
WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return mapErr("account increment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) ResetDailyCounters(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	const q = `
UPDATE whatsapp_accounts
   SET daily_ai_responses = 0, counters_reset_at = now(), updated_at = now()
 WHERE counters_reset_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, before)
	if err != nil {
		return 0, mapErr("account reset counters", err)
	}
	return tag.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*model.AccountMetadata, error) {
	var (
		a  model.AccountMetadata
		rt string
	)
	if err := row.Scan(
		&a.AccountID, &a.UserID, &a.SessionID, &a.SessionName, &a.AgentEnabled, &a.AIModelID, &a.AgentPrompt,
		&a.ContextualInformation, &a.TriggerWords, &a.IgnoreWords, &rt,
		&a.DailyAIResponses, &a.DailyAIResponseLimit, &a.CountersResetAt,
	); err != nil {
		return nil, err
	}
	a.ResponseTime = model.ParseResponseTime(rt)
	return &a, nil
}
