package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/mckzv/channelpilot/internal/models"
)

type ApiKeyRepository interface {
	Exists(ctx context.Context, apiKey string) (bool, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	Remove(ctx context.Context, id int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Exists(ctx context.Context, apiKey string) (bool, error) {
	query := "SELECT 1 FROM api_keys WHERE api_key = $1"

	var result int
	err := r.db.QueryRowContext(ctx, query, apiKey).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *apiKeyRepository) List(ctx context.Context) ([]*models.ApiKey, error) {
	query := `SELECT id, label, api_key, created_at FROM api_keys ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var apiKeys []*models.ApiKey
	for rows.Next() {
		var apiKey models.ApiKey
		err := rows.Scan(&apiKey.ID, &apiKey.Label, &apiKey.ApiKey, &apiKey.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		apiKeys = append(apiKeys, &apiKey)
	}
	return apiKeys, nil
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	query := "INSERT INTO api_keys (label, api_key) VALUES ($1, $2) RETURNING id"
	var id int64
	err := r.db.QueryRowContext(ctx, query, apiKey.Label, apiKey.ApiKey).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *apiKeyRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM api_keys WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
