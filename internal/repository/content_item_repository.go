package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

type ContentItemRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ContentItem, error)
	Create(ctx context.Context, item *models.ContentItem) (int64, error)
	ListByChannel(ctx context.Context, channelID int64) ([]*models.ContentItem, error)
	ListReady(ctx context.Context) ([]*models.ContentItem, error)
	UpdateStageStatus(ctx context.Context, id int64, stage string, status models.StageStatus) error
	UpdateAcquisition(ctx context.Context, item *models.ContentItem) error
	UpdateProcessing(ctx context.Context, item *models.ContentItem) error
	UpdatePublication(ctx context.Context, item *models.ContentItem) error
}

type contentItemRepository struct {
	db *sql.DB
}

func NewContentItemRepository(db *sql.DB) ContentItemRepository {
	return &contentItemRepository{db: db}
}

const contentItemColumns = `id, channel_id, title, source_url, external_id, acquisition_status,
	processing_status, publication_status, resolution_height, views, duration_seconds, flagged,
	raw_url, processed_url, file_size, platform_id, platform_url, published_at, created_at, updated_at`

func scanContentItem(row interface{ Scan(...any) error }) (*models.ContentItem, error) {
	var item models.ContentItem
	err := row.Scan(&item.ID, &item.ChannelID, &item.Title, &item.SourceURL, &item.ExternalID,
		&item.AcquisitionStatus, &item.ProcessingStatus, &item.PublicationStatus,
		&item.ResolutionHeight, &item.Views, &item.DurationSeconds, &item.Flagged,
		&item.RawURL, &item.ProcessedURL, &item.FileSize, &item.PlatformID, &item.PlatformURL,
		&item.PublishedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentItemRepository) GetByID(ctx context.Context, id int64) (*models.ContentItem, error) {
	query := `SELECT ` + contentItemColumns + ` FROM content_items WHERE id = $1`
	item, err := scanContentItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

func (r *contentItemRepository) Create(ctx context.Context, item *models.ContentItem) (int64, error) {
	query := `
		INSERT INTO content_items (channel_id, title, source_url, external_id, acquisition_status,
			processing_status, publication_status, resolution_height, views, duration_seconds, flagged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, item.ChannelID, item.Title, item.SourceURL,
		item.ExternalID, item.AcquisitionStatus, item.ProcessingStatus, item.PublicationStatus,
		item.ResolutionHeight, item.Views, item.DurationSeconds, item.Flagged).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *contentItemRepository) ListByChannel(ctx context.Context, channelID int64) ([]*models.ContentItem, error) {
	query := `SELECT ` + contentItemColumns + ` FROM content_items WHERE channel_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectContentItems(rows)
}

// ListReady returns items whose acquisition and processing are both done,
// the candidate set for auto-distribution.
func (r *contentItemRepository) ListReady(ctx context.Context) ([]*models.ContentItem, error) {
	query := `SELECT ` + contentItemColumns + ` FROM content_items
		WHERE acquisition_status = $1 AND processing_status = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, models.StageDone)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectContentItems(rows)
}

func collectContentItems(rows *sql.Rows) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *contentItemRepository) UpdateStageStatus(ctx context.Context, id int64, stage string, status models.StageStatus) error {
	var column string
	switch stage {
	case "acquisition":
		column = "acquisition_status"
	case "processing":
		column = "processing_status"
	case "publication":
		column = "publication_status"
	default:
		return sql.ErrNoRows
	}

	query := `UPDATE content_items SET ` + column + ` = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentItemRepository) UpdateAcquisition(ctx context.Context, item *models.ContentItem) error {
	query := `
		UPDATE content_items
		SET acquisition_status = $1,
			raw_url = $2,
			file_size = $3,
			duration_seconds = $4,
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, item.AcquisitionStatus, item.RawURL, item.FileSize,
		item.DurationSeconds, time.Now(), item.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentItemRepository) UpdateProcessing(ctx context.Context, item *models.ContentItem) error {
	query := `
		UPDATE content_items
		SET processing_status = $1,
			processed_url = $2,
			file_size = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, item.ProcessingStatus, item.ProcessedURL,
		item.FileSize, time.Now(), item.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentItemRepository) UpdatePublication(ctx context.Context, item *models.ContentItem) error {
	query := `
		UPDATE content_items
		SET publication_status = $1,
			platform_id = $2,
			platform_url = $3,
			published_at = $4,
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, item.PublicationStatus, item.PlatformID,
		item.PlatformURL, item.PublishedAt, time.Now(), item.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
