package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hoanghai1803/sprout/internal/models"
)

// ActiveModelConfig returns the active provider configuration, or nil when
// no row is active.
func (s *Store) ActiveModelConfig(ctx context.Context) (*models.ModelConfig, error) {
	var (
		cfg         models.ModelConfig
		temperature sql.NullFloat64
		maxTokens   sql.NullInt64
		params      []byte
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, model_name, endpoint_url, auth_type, api_key_env,
			temperature, max_tokens, additional_params, is_active, created_at
		 FROM model_configs
		 WHERE is_active
		 LIMIT 1`,
	).Scan(&cfg.ID, &cfg.ModelName, &cfg.EndpointURL, &cfg.AuthType, &cfg.APIKeyEnv,
		&temperature, &maxTokens, &params, &cfg.IsActive, &cfg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active model config: %w", err)
	}

	if temperature.Valid {
		v := temperature.Float64
		cfg.Temperature = &v
	}
	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		cfg.MaxTokens = &v
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &cfg.AdditionalParams); err != nil {
			return nil, fmt.Errorf("decoding additional params: %w", err)
		}
	}
	return &cfg, nil
}

// ActivateModelConfig inserts cfg and makes it the only active row.
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

	if _, err := tx.ExecContext(ctx, `UPDATE model_configs SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("deactivating model configs: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO model_configs (model_name, endpoint_url, auth_type, api_key_env,
			temperature, max_tokens, additional_params, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING id`,
		cfg.ModelName, cfg.EndpointURL, cfg.AuthType, cfg.APIKeyEnv,
		cfg.Temperature, cfg.MaxTokens, params,
	).Scan(&id); err != nil {
		return fmt.Errorf("inserting model config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	cfg.ID = id
	cfg.IsActive = true
	return nil
}
