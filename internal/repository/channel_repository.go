package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/mckzv/channelpilot/internal/models"
)

type ChannelRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Channel, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) (int64, error)
	Update(ctx context.Context, channel *models.Channel) error
	SetToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error
	SetConnection(ctx context.Context, id int64, accountID, accountName, accessToken, refreshToken string, expiresAt time.Time) error
	ListByTokenExpiry(ctx context.Context, from, to time.Time) ([]*models.Channel, error)
	Remove(ctx context.Context, id int64) error
}

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

const channelColumns = `id, name, platform, account_id, account_name, active, source_url,
	processing_preset, ci_workflow_ref, min_resolution, min_views, max_duration_seconds,
	exclude_flagged, posts_per_day, preferred_times, access_token, refresh_token,
	token_expires_at, created_at, updated_at`

func scanChannel(row interface{ Scan(...any) error }) (*models.Channel, error) {
	var c models.Channel
	err := row.Scan(&c.ID, &c.Name, &c.Platform, &c.AccountID, &c.AccountName, &c.Active,
		&c.SourceURL, &c.ProcessingPreset, &c.CIWorkflowRef, &c.Filters.MinResolution,
		&c.Filters.MinViews, &c.Filters.MaxDurationSeconds, &c.Filters.ExcludeFlagged,
		&c.Posting.PostsPerDay, &c.Posting.PreferredTimes, &c.AccessToken, &c.RefreshToken,
		&c.TokenExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1`
	channel, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return channel, nil
}

func (r *channelRepository) List(ctx context.Context, activeOnly bool) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY id`
	if activeOnly {
		query = `SELECT ` + channelColumns + ` FROM channels WHERE active ORDER BY id`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *channelRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func collectChannels(rows *sql.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (r *channelRepository) Create(ctx context.Context, c *models.Channel) (int64, error) {
	query := `
		INSERT INTO channels (name, platform, account_id, account_name, active, source_url,
			processing_preset, ci_workflow_ref, min_resolution, min_views, max_duration_seconds,
			exclude_flagged, posts_per_day, preferred_times, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Platform, c.AccountID, c.AccountName,
		c.Active, c.SourceURL, c.ProcessingPreset, c.CIWorkflowRef, c.Filters.MinResolution,
		c.Filters.MinViews, c.Filters.MaxDurationSeconds, c.Filters.ExcludeFlagged,
		c.Posting.PostsPerDay, c.Posting.PreferredTimes, c.AccessToken, c.RefreshToken,
		c.TokenExpiresAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *channelRepository) Update(ctx context.Context, c *models.Channel) error {
	query := `
		UPDATE channels
		SET name = $1,
			active = $2,
			source_url = $3,
			processing_preset = $4,
			ci_workflow_ref = $5,
			min_resolution = $6,
			min_views = $7,
			max_duration_seconds = $8,
			exclude_flagged = $9,
			posts_per_day = $10,
			preferred_times = $11,
			updated_at = $12
		WHERE id = $13
	`
	_, err := r.db.ExecContext(ctx, query, c.Name, c.Active, c.SourceURL, c.ProcessingPreset,
		c.CIWorkflowRef, c.Filters.MinResolution, c.Filters.MinViews, c.Filters.MaxDurationSeconds,
		c.Filters.ExcludeFlagged, c.Posting.PostsPerDay, c.Posting.PreferredTimes, time.Now(), c.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *channelRepository) SetToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE channels
		SET access_token = $1,
			token_expires_at = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, accessToken, expiresAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *channelRepository) SetConnection(ctx context.Context, id int64, accountID, accountName, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE channels
		SET account_id = $1,
			account_name = $2,
			access_token = $3,
			refresh_token = $4,
			token_expires_at = $5,
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, accountID, accountName, accessToken, refreshToken, expiresAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *channelRepository) ListByTokenExpiry(ctx context.Context, from, to time.Time) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels
		WHERE active AND refresh_token <> '' AND token_expires_at BETWEEN $1 AND $2`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *channelRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM channels WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
