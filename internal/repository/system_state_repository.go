package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// SystemStateRepository is the process-wide key/value store backing the
// coordinator and queue orchestration flags, so restarts observe the last
// recorded state.
type SystemStateRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type systemStateRepository struct {
	db *sql.DB
}

func NewSystemStateRepository(db *sql.DB) SystemStateRepository {
	return &systemStateRepository{db: db}
}

func (r *systemStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM system_state WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		slog.Info(err.Error())
		return "", false, err
	}
	return value, true, nil
}

func (r *systemStateRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`
	_, err := r.db.ExecContext(ctx, query, key, value, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
