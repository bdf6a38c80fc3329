package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/config"
	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/infra/logging"
)

type resolveStep struct {
	source  model.ModelSource
	resolve func(ctx context.Context, account *model.AccountMetadata) (*model.AIModel, error)
}

// ModelResolver picks the AI model for an account by walking an ordered chain:
// the account's own model, the store default, then the configured fallback.
// A step that yields nothing hands over to the next one.
type ModelResolver struct {
	models repository.AIModelRepository
	steps  []resolveStep
	log    *zerolog.Logger
}

func NewModelResolver(models repository.AIModelRepository, cfg config.AIConfig, logger *zerolog.Logger) *ModelResolver {
	r := &ModelResolver{models: models, log: logger}
	r.steps = []resolveStep{
		{source: model.ModelSourceAccount, resolve: r.accountModel},
		{source: model.ModelSourceDefault, resolve: r.storeDefault},
		{source: model.ModelSourceFallback, resolve: configuredFallback(cfg)},
	}
	return r
}

func (r *ModelResolver) Resolve(ctx context.Context, account *model.AccountMetadata) (*model.AIModel, model.ModelSource, error) {
	log := logging.With(ctx, r.log)
	for _, s := range r.steps {
		m, err := s.resolve(ctx, account)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("step", string(s.source)).Msg("model resolution step failed")
			continue
		}
		if m == nil || !m.IsActive {
			log.Debug().Str("step", string(s.source)).Msg("no usable model at step")
			continue
		}
		log.Debug().Str("step", string(s.source)).Str("model", m.ModelIdentifier).Msg("model resolved")
		return m, s.source, nil
	}
	return nil, "", domain.ErrNoModelAvailable
}

func (r *ModelResolver) accountModel(ctx context.Context, account *model.AccountMetadata) (*model.AIModel, error) {
	if account == nil || account.AIModelID == nil {
		return nil, nil
	}
	return r.models.FindByID(ctx, repository.NoTX, *account.AIModelID)
}

func (r *ModelResolver) storeDefault(ctx context.Context, _ *model.AccountMetadata) (*model.AIModel, error) {
	return r.models.FindDefault(ctx, repository.NoTX)
}

func configuredFallback(cfg config.AIConfig) func(context.Context, *model.AccountMetadata) (*model.AIModel, error) {
	return func(context.Context, *model.AccountMetadata) (*model.AIModel, error) {
		if cfg.FallbackModel == "" {
			return nil, nil
		}
		return &model.AIModel{
			Name:            cfg.FallbackModel,
			Provider:        cfg.FallbackProvider,
			ModelIdentifier: cfg.FallbackModel,
			IsActive:        true,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
		}, nil
	}
}
