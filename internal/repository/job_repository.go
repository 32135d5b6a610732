package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	ListPending(ctx context.Context, jobType *models.JobType, limit int) ([]*models.Job, error)
	ClaimForProcessing(ctx context.Context, id int64, startedAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id int64, completedAt time.Time, durationMS int64) error
	MarkRetrying(ctx context.Context, id int64, errMsg string, retryAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	PromoteDueRetries(ctx context.Context, now time.Time) (int64, error)
	ResetForRetry(ctx context.Context, id int64, queuedAt time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
	AverageDurationMS(ctx context.Context) (float64, error)
	AverageWaitMS(ctx context.Context) (float64, error)
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `id, content_item_id, channel_id, job_type, status, priority, attempts,
	max_attempts, error_message, retry_at, queued_at, started_at, completed_at, duration_ms`

func scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var job models.Job
	err := row.Scan(&job.ID, &job.ContentItemID, &job.ChannelID, &job.JobType, &job.Status,
		&job.Priority, &job.Attempts, &job.MaxAttempts, &job.ErrorMessage, &job.RetryAt,
		&job.QueuedAt, &job.StartedAt, &job.CompletedAt, &job.DurationMS)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) (int64, error) {
	query := `
		INSERT INTO jobs (content_item_id, channel_id, job_type, status, priority, max_attempts, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, job.ContentItemID, job.ChannelID, job.JobType,
		job.Status, job.Priority, job.MaxAttempts, job.QueuedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *jobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return job, nil
}

// ListPending orders by priority descending, then FIFO within equal priority.
func (r *jobRepository) ListPending(ctx context.Context, jobType *models.JobType, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1`
	args := []any{models.JobStatusQueued}

	if jobType != nil {
		query += ` AND job_type = $2`
		args = append(args, *jobType)
	}
	query += ` ORDER BY priority DESC, queued_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimForProcessing is a compare-and-set on status so that two drivers
// cannot both take the same job. Returns false when the job was already
// claimed or is no longer queued.
func (r *jobRepository) ClaimForProcessing(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
			attempts = attempts + 1,
			started_at = $2,
			error_message = ''
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.JobStatusProcessing, startedAt, id, models.JobStatusQueued)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id int64, completedAt time.Time, durationMS int64) error {
	query := `
		UPDATE jobs
		SET status = $1,
			completed_at = $2,
			duration_ms = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.JobStatusCompleted, completedAt, durationMS, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) MarkRetrying(ctx context.Context, id int64, errMsg string, retryAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1,
			error_message = $2,
			retry_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.JobStatusRetrying, errMsg, retryAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			error_message = $2,
			completed_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.JobStatusFailed, errMsg, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// PromoteDueRetries moves retrying jobs whose eligibility time has passed
// back to queued, re-stamping queued_at so they re-enter FIFO order.
func (r *jobRepository) PromoteDueRetries(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1,
			retry_at = NULL,
			queued_at = $2
		WHERE status = $3 AND retry_at <= $2
	`
	result, err := r.db.ExecContext(ctx, query, models.JobStatusQueued, now, models.JobStatusRetrying)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

// ResetForRetry handles an explicit manual retry of a failed job.
func (r *jobRepository) ResetForRetry(ctx context.Context, id int64, queuedAt time.Time) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
			error_message = '',
			retry_at = NULL,
			started_at = NULL,
			completed_at = NULL,
			queued_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.JobStatusQueued, queuedAt, id, models.JobStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *jobRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status models.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *jobRepository) AverageDurationMS(ctx context.Context) (float64, error) {
	query := `SELECT COALESCE(AVG(duration_ms), 0) FROM jobs WHERE status = $1`

	var avg float64
	err := r.db.QueryRowContext(ctx, query, models.JobStatusCompleted).Scan(&avg)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return avg, nil
}

func (r *jobRepository) AverageWaitMS(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (started_at - queued_at)) * 1000), 0)
		FROM jobs
		WHERE started_at IS NOT NULL AND status IN ($1, $2)
	`

	var avg float64
	err := r.db.QueryRowContext(ctx, query, models.JobStatusCompleted, models.JobStatusProcessing).Scan(&avg)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return avg, nil
}
