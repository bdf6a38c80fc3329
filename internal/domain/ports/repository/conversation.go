package repository

import (
	"context"
	"time"

	"whatsapp-ai-agent/internal/domain/model"
)

type ConversationRepository interface {
	// Upsert inserts the conversation or returns the existing one for (account, contact).
	Upsert(ctx context.Context, tx Tx, c *model.Conversation) (*model.Conversation, error)
	FindByContact(ctx context.Context, tx Tx, accountID int64, contact string) (*model.Conversation, error)
	// TouchLastMessage moves the last-message marker. An answered touch clears the unread
	// count, otherwise it grows by one.
	TouchLastMessage(ctx context.Context, tx Tx, conversationID string, at time.Time, preview string, answered bool) error

	// InsertMessage is idempotent on (conversation, provider message id); it reports whether a row was written.
	InsertMessage(ctx context.Context, tx Tx, m *model.StoredMessage) (bool, error)
	FindMessageByProviderID(ctx context.Context, tx Tx, conversationID, providerID string) (*model.StoredMessage, error)
	// ListRecentMessages returns up to limit messages in chronological order.
	ListRecentMessages(ctx context.Context, tx Tx, conversationID string, limit int) ([]*model.StoredMessage, error)
}
