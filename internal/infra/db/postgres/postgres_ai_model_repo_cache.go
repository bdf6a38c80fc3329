package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/infra/metrics"
	red "whatsapp-ai-agent/internal/infra/redis"
)

var _ repository.AIModelRepository = (*aiModelRepoCacheDecorator)(nil)

const (
	aiModelDefaultKey = "ai_model:default"
	aiModelListKey    = "ai_model:all_active"
)

func aiModelIDKey(id int64) string { return fmt.Sprintf("ai_model:id:%d", id) }

type aiModelRepoCacheDecorator struct {
	inner repository.AIModelRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewAIModelRepoCacheDecorator(inner repository.AIModelRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.AIModelRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &aiModelRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func (d *aiModelRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AIModel, error) {
	return d.cachedOne(ctx, aiModelIDKey(id), func() (*model.AIModel, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *aiModelRepoCacheDecorator) FindDefault(ctx context.Context, tx repository.Tx) (*model.AIModel, error) {
	return d.cachedOne(ctx, aiModelDefaultKey, func() (*model.AIModel, error) {
		return d.inner.FindDefault(ctx, tx)
	})
}

func (d *aiModelRepoCacheDecorator) cachedOne(ctx context.Context, key string, load func() (*model.AIModel, error)) (*model.AIModel, error) {
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var m model.AIModel
		if json.Unmarshal([]byte(val), &m) == nil {
			metrics.IncCacheRequest("ai_model", "hit")
			return &m, nil
		}
		metrics.IncCacheRequest("ai_model", "miss")
	case errors.Is(err, redis.Nil):
		metrics.IncCacheRequest("ai_model", "miss")
	default:
		metrics.IncCacheRequest("ai_model", "error")
		d.log.Warn().Err(err).Str("key", key).Msg("ai model cache read failed")
	}

	m, err := load()
	if err != nil {
		return nil, err
	}
	if m != nil {
		if b, err := json.Marshal(m); err == nil {
			_ = d.cache.Set(ctx, key, b, d.ttl)
		}
	}
	return m, nil
}

func (d *aiModelRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	val, err := d.cache.Get(ctx, aiModelListKey)
	if err == nil {
		var list []*model.AIModel
		if json.Unmarshal([]byte(val), &list) == nil {
			metrics.IncCacheRequest("ai_model_list", "hit")
			return list, nil
		}
	}

	metrics.IncCacheRequest("ai_model_list", "miss")
	list, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		if b, err := json.Marshal(list); err == nil {
			_ = d.cache.Set(ctx, aiModelListKey, b, d.ttl)
		}
	}
	return list, nil
}

// Save invalidates the item, default and list entries.
func (d *aiModelRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, m *model.AIModel) error {
	if err := d.inner.Save(ctx, tx, m); err != nil {
		return err
	}
	keys := []string{aiModelDefaultKey, aiModelListKey}
	if m.ID != 0 {
		keys = append(keys, aiModelIDKey(m.ID))
	}
	err := d.cache.Del(ctx, keys...)
	metrics.IncCacheInvalidation("ai_model", err == nil)
	if err != nil {
		d.log.Warn().Err(err).Msg("ai model cache invalidation failed")
	}
	return nil
}
