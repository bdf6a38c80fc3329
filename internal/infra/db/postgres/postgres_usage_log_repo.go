package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
)

var _ repository.UsageLogRepository = (*usageLogRepo)(nil)

type usageLogRepo struct {
	pool *pgxpool.Pool
}

func NewUsageLogRepo(pool *pgxpool.Pool) *usageLogRepo {
	return &usageLogRepo{pool: pool}
}

func (r *usageLogRepo) Save(ctx context.Context, tx repository.Tx, l *model.UsageLog) error {
	const q = `
INSERT INTO ai_usage_logs (id, user_id, account_id, conversation_id, message_id, ai_model, provider,
                           prompt_tokens, completion_tokens, total_tokens, cost_usd, cost_xaf, response_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q,
		l.ID, l.UserID, l.AccountID, l.ConversationID, l.MessageID, l.AIModel, l.Provider,
		l.PromptTokens, l.CompletionTokens, l.TotalTokens, l.CostUSD, l.CostXAF, l.ResponseTimeMs, l.CreatedAt)
	return mapErr("usage log save", err)
}
