package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

type DistributionRepository interface {
	Create(ctx context.Context, dist *models.Distribution) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Distribution, error)
	ListByPair(ctx context.Context, itemID, channelID int64) ([]*models.Distribution, error)
	ListForStatistics(ctx context.Context, channelID *int64, from, to *time.Time) ([]*models.Distribution, error)
	UpdateStatus(ctx context.Context, id int64, status models.DistributionStatus, errMsg string) error
	AttachSchedule(ctx context.Context, id, scheduleID int64) error
	ResetForRetry(ctx context.Context, id int64) error
}

type distributionRepository struct {
	db *sql.DB
}

func NewDistributionRepository(db *sql.DB) DistributionRepository {
	return &distributionRepository{db: db}
}

const distributionColumns = `id, content_item_id, channel_id, distribution_method, status,
	schedule_id, matched_filters, error_message, retry_count, max_retries, created_at, updated_at`

func scanDistribution(row interface{ Scan(...any) error }) (*models.Distribution, error) {
	var d models.Distribution
	err := row.Scan(&d.ID, &d.ContentItemID, &d.ChannelID, &d.Method, &d.Status, &d.ScheduleID,
		&d.MatchedFilters, &d.ErrorMessage, &d.RetryCount, &d.MaxRetries, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *distributionRepository) Create(ctx context.Context, d *models.Distribution) (int64, error) {
	query := `
		INSERT INTO distributions (content_item_id, channel_id, distribution_method, status,
			schedule_id, matched_filters, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, d.ContentItemID, d.ChannelID, d.Method, d.Status,
		d.ScheduleID, d.MatchedFilters, d.MaxRetries).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *distributionRepository) GetByID(ctx context.Context, id int64) (*models.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE id = $1`
	dist, err := scanDistribution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return dist, nil
}

func (r *distributionRepository) ListByPair(ctx context.Context, itemID, channelID int64) ([]*models.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions
		WHERE content_item_id = $1 AND channel_id = $2 ORDER BY id`
	return r.list(ctx, query, itemID, channelID)
}

func (r *distributionRepository) ListForStatistics(ctx context.Context, channelID *int64, from, to *time.Time) ([]*models.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions
		WHERE ($1::bigint IS NULL OR channel_id = $1)
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY id`
	return r.list(ctx, query, channelID, from, to)
}

func (r *distributionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Distribution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var dists []*models.Distribution
	for rows.Next() {
		dist, err := scanDistribution(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		dists = append(dists, dist)
	}
	return dists, rows.Err()
}

func (r *distributionRepository) UpdateStatus(ctx context.Context, id int64, status models.DistributionStatus, errMsg string) error {
	query := `
		UPDATE distributions
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, errMsg, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *distributionRepository) AttachSchedule(ctx context.Context, id, scheduleID int64) error {
	query := `
		UPDATE distributions
		SET schedule_id = $1,
			status = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, scheduleID, models.DistributionStatusScheduled, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ResetForRetry increments retry_count and puts the distribution back to
// assigned with its error cleared.
func (r *distributionRepository) ResetForRetry(ctx context.Context, id int64) error {
	query := `
		UPDATE distributions
		SET status = $1,
			retry_count = retry_count + 1,
			error_message = '',
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.DistributionStatusAssigned, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
