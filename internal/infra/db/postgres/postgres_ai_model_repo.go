package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
)

var _ repository.AIModelRepository = (*aiModelRepo)(nil)

type aiModelRepo struct {
	pool *pgxpool.Pool
}

func NewAIModelRepo(pool *pgxpool.Pool) *aiModelRepo {
	return &aiModelRepo{pool: pool}
}

const aiModelColumns = `
id, name, provider, model_identifier, endpoint, is_active, is_default, max_tokens, temperature,
input_price_micros_per_1k, output_price_micros_per_1k, created_at, updated_at`

func (r *aiModelRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.AIModel, error) {
	q := `SELECT ` + aiModelColumns + ` FROM ai_models WHERE id = $1;`
	return r.findOne(ctx, tx, q, id)
}

func (r *aiModelRepo) FindDefault(ctx context.Context, tx repository.Tx) (*model.AIModel, error) {
	q := `SELECT ` + aiModelColumns + ` FROM ai_models WHERE is_default AND is_active ORDER BY updated_at DESC LIMIT 1;`
	return r.findOne(ctx, tx, q)
}

func (r *aiModelRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.AIModel, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("ai model find", err)
	}
	m, err := scanAIModel(row)
	if err != nil {
		return nil, mapScanErr("ai model scan", err)
	}
	return m, nil
}

func (r *aiModelRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	q := `SELECT ` + aiModelColumns + ` FROM ai_models WHERE is_active ORDER BY name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("ai model list", err)
	}
	defer rows.Close()

	var out []*model.AIModel
	for rows.Next() {
		m, err := scanAIModel(rows)
		if err != nil {
			return nil, mapScanErr("ai model scan", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapScanErr("ai model rows", err)
	}
	return out, nil
}

// Save upserts on model_identifier. A new default model clears the previous default first.
func (r *aiModelRepo) Save(ctx context.Context, tx repository.Tx, m *model.AIModel) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	if m.IsDefault {
		const clear = `UPDATE ai_models SET is_default = FALSE, updated_at = now() WHERE is_default AND model_identifier <> $1;`
		if _, err := execSQL(ctx, r.pool, tx, clear, m.ModelIdentifier); err != nil {
			return mapErr("ai model clear default", err)
		}
	}

	var in, out *int64
	if m.Pricing != nil {
		in, out = &m.Pricing.InputMicrosPer1K, &m.Pricing.OutputMicrosPer1K
	}
	const q = `
INSERT INTO ai_models (name, provider, model_identifier, endpoint, is_active, is_default, max_tokens, temperature,
                       input_price_micros_per_1k, output_price_micros_per_1k, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (model_identifier) DO UPDATE SET
  name = EXCLUDED.name,
  provider = EXCLUDED.provider,
  endpoint = EXCLUDED.endpoint,
  is_active = EXCLUDED.is_active,
  is_default = EXCLUDED.is_default,
  max_tokens = EXCLUDED.max_tokens,
  temperature = EXCLUDED.temperature,
  input_price_micros_per_1k = EXCLUDED.input_price_micros_per_1k,
  output_price_micros_per_1k = EXCLUDED.output_price_micros_per_1k,
  updated_at = EXCLUDED.updated_at
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, m.Name, m.Provider, m.ModelIdentifier, m.Endpoint, m.IsActive, m.IsDefault,
		m.MaxTokens, m.Temperature, in, out, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return mapErr("ai model save", err)
	}
	if err := row.Scan(&m.ID); err != nil {
		return mapErr("ai model save", err)
	}
	return nil
}

func scanAIModel(row pgx.Row) (*model.AIModel, error) {
	var (
		m       model.AIModel
		in, out *int64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Provider, &m.ModelIdentifier, &m.Endpoint, &m.IsActive, &m.IsDefault,
		&m.MaxTokens, &m.Temperature, &in, &out, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if in != nil && out != nil {
		m.Pricing = &model.ModelPricing{InputMicrosPer1K: *in, OutputMicrosPer1K: *out}
	}
	return &m, nil
}
