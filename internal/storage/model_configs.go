package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hoanghai1803/sprout/internal/models"
)

const modelConfigColumns = `id, model_name, endpoint_url, auth_type, api_key_env,
	temperature, max_tokens, additional_params, is_active, created_at`

// ActiveModelConfig returns the active provider configuration, or nil when
// no row is active.
func (s *Store) ActiveModelConfig(ctx context.Context) (*models.ModelConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+modelConfigColumns+` FROM model_configs WHERE is_active = 1 LIMIT 1`)

	cfg, err := scanModelConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active model config: %w", err)
	}
	return cfg, nil
}

// ActivateModelConfig inserts cfg and makes it the only active row.
// cfg.ID and cfg.IsActive are updated on success.
func (s *Store) ActivateModelConfig(ctx context.Context, cfg *models.ModelConfig) error {
	var params *string
	if len(cfg.AdditionalParams) > 0 {
		data, err := json.Marshal(cfg.AdditionalParams)
		if err != nil {
			return fmt.Errorf("encoding additional params: %w", err)
		}
		v := string(data)
		params = &v
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `UPDATE model_configs SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("deactivating model configs: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO model_configs (model_name, endpoint_url, auth_type, api_key_env,
			temperature, max_tokens, additional_params, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		cfg.ModelName, cfg.EndpointURL, cfg.AuthType, cfg.APIKeyEnv,
		cfg.Temperature, cfg.MaxTokens, params,
	)
	if err != nil {
		return fmt.Errorf("inserting model config: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting model config id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	cfg.ID = id
	cfg.IsActive = true
	return nil
}

func scanModelConfig(row scanner) (*models.ModelConfig, error) {
	var (
		cfg         models.ModelConfig
		temperature sql.NullFloat64
		maxTokens   sql.NullInt64
		params      sql.NullString
		createdAt   string
	)

	if err := row.Scan(
		&cfg.ID, &cfg.ModelName, &cfg.EndpointURL, &cfg.AuthType, &cfg.APIKeyEnv,
		&temperature, &maxTokens, &params, &cfg.IsActive, &createdAt,
	); err != nil {
		return nil, err
	}

	if temperature.Valid {
		v := temperature.Float64
		cfg.Temperature = &v
	}
	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		cfg.MaxTokens = &v
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &cfg.AdditionalParams); err != nil {
			return nil, fmt.Errorf("decoding additional params: %w", err)
		}
	}
	cfg.CreatedAt = parseTime(createdAt)

	return &cfg, nil
}
