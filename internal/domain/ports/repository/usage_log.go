package repository

import (
	"context"

	"whatsapp-ai-agent/internal/domain/model"
)

type UsageLogRepository interface {
	Save(ctx context.Context, tx Tx, l *model.UsageLog) error
}
