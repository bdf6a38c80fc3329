package repository

import (
	"context"

	"whatsapp-ai-agent/internal/domain/model"
)

type AIModelRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.AIModel, error)
	// FindDefault returns the active model flagged as default.
	FindDefault(ctx context.Context, tx Tx) (*model.AIModel, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.AIModel, error)
	// Save upserts by model identifier.
	Save(ctx context.Context, tx Tx, m *model.AIModel) error
}
