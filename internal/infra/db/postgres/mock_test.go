//go:build !integration

package postgres

import (
	"context"
	"time"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	red "whatsapp-ai-agent/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAIModelRepo mocks the database repository that the AI model decorator wraps.
type mockInnerAIModelRepo struct {
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id int64) (*model.AIModel, error)
	FindDefaultFunc func(ctx context.Context, tx repository.Tx) (*model.AIModel, error)
	ListActiveFunc  func(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error)
	SaveFunc        func(ctx context.Context, tx repository.Tx, m *model.AIModel) error
}

func (m *mockInnerAIModelRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AIModel, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerAIModelRepo) FindDefault(ctx context.Context, tx repository.Tx) (*model.AIModel, error) {
	return m.FindDefaultFunc(ctx, tx)
}
func (m *mockInnerAIModelRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	return m.ListActiveFunc(ctx, tx)
}
func (m *mockInnerAIModelRepo) Save(ctx context.Context, tx repository.Tx, am *model.AIModel) error {
	return m.SaveFunc(ctx, tx, am)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) error { return nil }

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
