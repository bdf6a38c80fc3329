package repository

import (
	"context"
	"time"

	"whatsapp-ai-agent/internal/domain/model"
)

// AccountRepository reads WhatsApp account snapshots and owns the daily AI response counter.
type AccountRepository interface {
	FindByID(ctx context.Context, tx Tx, accountID int64) (*model.AccountMetadata, error)
	FindBySessionID(ctx context.Context, tx Tx, sessionID string) (*model.AccountMetadata, error)
	IncrementDailyResponses(ctx context.Context, tx Tx, accountID int64) error
	// ResetDailyCounters zeroes counters last reset before the cutoff and returns how many rows changed.
	ResetDailyCounters(ctx context.Context, tx Tx, before time.Time) (int64, error)
}
