package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *conversationRepo {
	return &conversationRepo{pool: pool}
}

const conversationColumns = `
id, account_id, contact_identifier, contact_name, contact_phone, is_group,
last_message_at, last_message_preview, unread_count, created_at, updated_at`

const messageColumns = `
id, conversation_id, provider_message_id, direction, type, content, is_ai_generated,
reply_to_message_id, ai_model, tokens_used, encrypted, sent_at, created_at`

// Upsert keeps the existing row on conflict and only fills a missing contact name.
func (r *conversationRepo) Upsert(ctx context.Context, tx repository.Tx, c *model.Conversation) (*model.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	q := `
INSERT INTO conversations (id, account_id, contact_identifier, contact_name, contact_phone, is_group, last_message_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
ON CONFLICT (account_id, contact_identifier) DO UPDATE SET
  contact_name  = CASE WHEN conversations.contact_name = '' THEN EXCLUDED.contact_name ELSE conversations.contact_name END,
  contact_phone = CASE WHEN conversations.contact_phone = '' THEN EXCLUDED.contact_phone ELSE conversations.contact_phone END,
  updated_at    = now()
RETURNING ` + conversationColumns + `;`
	lastAt := c.LastMessageAt
	if lastAt.IsZero() {
		lastAt = time.Now()
	}
	row, err := pickRow(ctx, r.pool, tx, q, c.ID, c.AccountID, c.ContactIdentifier, c.ContactName, c.ContactPhone, c.IsGroup, lastAt)
	if err != nil {
		return nil, mapErr("conversation upsert", err)
	}
	out, err := scanConversation(row)
	if err != nil {
		return nil, mapErr("conversation upsert", err)
	}
	return out, nil
}

func (r *conversationRepo) FindByContact(ctx context.Context, tx repository.Tx, accountID int64, contact string) (*model.Conversation, error) {
	q := `SELECT ` + conversationColumns + ` FROM conversations WHERE account_id = $1 AND contact_identifier = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID, contact)
	if err != nil {
		return nil, mapErr("conversation find", err)
	}
	c, err := scanConversation(row)
	if err != nil {
		return nil, mapScanErr("conversation scan", err)
	}
	return c, nil
}

func (r *conversationRepo) TouchLastMessage(ctx context.Context, tx repository.Tx, conversationID string, at time.Time, preview string, answered bool) error {
	const q = `
UPDATE conversations SET
  last_message_at      = GREATEST(last_message_at, $2),
  last_message_preview = $3,
  unread_count         = CASE WHEN $4::boolean THEN 0 ELSE unread_count + 1 END,
  updated_at           = now()
WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, conversationID, at, preview, answered)
	if err != nil {
		return mapErr("conversation touch", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *conversationRepo) InsertMessage(ctx context.Context, tx repository.Tx, m *model.StoredMessage) (bool, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.SentAt.IsZero() {
		m.SentAt = m.CreatedAt
	}
	q := `
INSERT INTO messages (` + messageColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (conversation_id, provider_message_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.ConversationID, m.ProviderMessageID, string(m.Direction), m.Type, m.Content, m.IsAIGenerated,
		m.ReplyToMessageID, m.AIModel, m.TokensUsed, m.Encrypted, m.SentAt, m.CreatedAt)
	if err != nil {
		return false, mapErr("message insert", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *conversationRepo) FindMessageByProviderID(ctx context.Context, tx repository.Tx, conversationID, providerID string) (*model.StoredMessage, error) {
	q := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 AND provider_message_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, conversationID, providerID)
	if err != nil {
		return nil, mapErr("message find", err)
	}
	m, err := scanMessage(row)
	if err != nil {
		return nil, mapScanErr("message scan", err)
	}
	return m, nil
}

func (r *conversationRepo) ListRecentMessages(ctx context.Context, tx repository.Tx, conversationID string, limit int) ([]*model.StoredMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY sent_at DESC, created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, conversationID, limit)
	if err != nil {
		return nil, mapErr("message list", err)
	}
	defer rows.Close()

	var out []*model.StoredMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, mapScanErr("message scan", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapScanErr("message rows", err)
	}
	// newest first from SQL, callers want chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	if err := row.Scan(&c.ID, &c.AccountID, &c.ContactIdentifier, &c.ContactName, &c.ContactPhone, &c.IsGroup,
		&c.LastMessageAt, &c.LastMessagePreview, &c.UnreadCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMessage(row pgx.Row) (*model.StoredMessage, error) {
	var (
		m   model.StoredMessage
		dir string
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.ProviderMessageID, &dir, &m.Type, &m.Content, &m.IsAIGenerated,
		&m.ReplyToMessageID, &m.AIModel, &m.TokensUsed, &m.Encrypted, &m.SentAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Direction = model.Direction(dir)
	return &m, nil
}
