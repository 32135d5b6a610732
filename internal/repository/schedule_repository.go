package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

type ScheduleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, schedule *models.Schedule) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	ListByGroup(ctx context.Context, groupID string) ([]*models.Schedule, error)
	ListByWave(ctx context.Context, waveID string) ([]*models.Schedule, error)
	ListDue(ctx context.Context, before time.Time) ([]*models.Schedule, error)
	FindConflicting(ctx context.Context, channelID int64, itemID *int64, at time.Time, window time.Duration) ([]*models.Schedule, error)
	ExistsNear(ctx context.Context, channelID int64, at time.Time, window time.Duration) (bool, error)
	ClaimForExecution(ctx context.Context, id int64) (bool, error)
	MarkExecuted(ctx context.Context, id int64, status models.ScheduleStatus, result, errMsg string) error
	SetPaused(ctx context.Context, id int64, paused bool) error
	Cancel(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.ScheduleStatus) error
	CountDueWithin(ctx context.Context, before time.Time) (int, error)
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, channel_id, content_item_id, schedule_type, scheduled_at, delay_seconds,
	status, coordination_group_id, wave_id, is_paused, result, error_message, executed_at,
	created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (*models.Schedule, error) {
	var s models.Schedule
	err := row.Scan(&s.ID, &s.ChannelID, &s.ContentItemID, &s.ScheduleType, &s.ScheduledAt,
		&s.DelaySeconds, &s.Status, &s.CoordinationGroupID, &s.WaveID, &s.IsPaused,
		&s.Result, &s.ErrorMessage, &s.ExecutedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, tx *sql.Tx, s *models.Schedule) (int64, error) {
	query := `
		INSERT INTO schedules (channel_id, content_item_id, schedule_type, scheduled_at,
			delay_seconds, status, coordination_group_id, wave_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, s.ChannelID, s.ContentItemID, s.ScheduleType,
			s.ScheduledAt, s.DelaySeconds, s.Status, s.CoordinationGroupID, s.WaveID).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, s.ChannelID, s.ContentItemID, s.ScheduleType,
			s.ScheduledAt, s.DelaySeconds, s.Status, s.CoordinationGroupID, s.WaveID).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE coordination_group_id = $1 ORDER BY scheduled_at`
	return r.list(ctx, query, groupID)
}

func (r *scheduleRepository) ListByWave(ctx context.Context, waveID string) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE wave_id = $1 ORDER BY scheduled_at`
	return r.list(ctx, query, waveID)
}

// ListDue returns pending, unpaused schedules whose time has come.
func (r *scheduleRepository) ListDue(ctx context.Context, before time.Time) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE status = $1 AND NOT is_paused AND scheduled_at <= $2
		ORDER BY scheduled_at`
	return r.list(ctx, query, models.ScheduleStatusPending, before)
}

func (r *scheduleRepository) list(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// FindConflicting returns non-terminal schedules for the same channel and
// item whose scheduled_at falls inside the given window around at.
func (r *scheduleRepository) FindConflicting(ctx context.Context, channelID int64, itemID *int64, at time.Time, window time.Duration) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE channel_id = $1
			AND content_item_id IS NOT DISTINCT FROM $2
			AND status IN ($3, $4, $5)
			AND scheduled_at BETWEEN $6 AND $7`
	return r.list(ctx, query, channelID, itemID,
		models.ScheduleStatusPending, models.ScheduleStatusScheduled, models.ScheduleStatusExecuting,
		at.Add(-window), at.Add(window))
}

func (r *scheduleRepository) ExistsNear(ctx context.Context, channelID int64, at time.Time, window time.Duration) (bool, error) {
	query := `SELECT 1 FROM schedules
		WHERE channel_id = $1 AND status IN ($2, $3, $4)
			AND scheduled_at BETWEEN $5 AND $6
		LIMIT 1`

	var result int
	err := r.db.QueryRowContext(ctx, query, channelID,
		models.ScheduleStatusPending, models.ScheduleStatusScheduled, models.ScheduleStatusExecuting,
		at.Add(-window), at.Add(window)).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}

// ClaimForExecution transitions pending -> executing with a compare-and-set
// so concurrent drivers cannot double-execute one schedule.
func (r *scheduleRepository) ClaimForExecution(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE schedules
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4 AND NOT is_paused
	`
	result, err := r.db.ExecContext(ctx, query, models.ScheduleStatusExecuting, time.Now(), id, models.ScheduleStatusPending)
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

func (r *scheduleRepository) MarkExecuted(ctx context.Context, id int64, status models.ScheduleStatus, result, errMsg string) error {
	query := `
		UPDATE schedules
		SET status = $1,
			result = $2,
			error_message = $3,
			executed_at = $4,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, result, errMsg, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) SetPaused(ctx context.Context, id int64, paused bool) error {
	query := `UPDATE schedules SET is_paused = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, paused, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE schedules
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status NOT IN ($1, $4)
	`
	result, err := r.db.ExecContext(ctx, query, models.ScheduleStatusCancelled, time.Now(), id, models.ScheduleStatusCompleted)
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

func (r *scheduleRepository) UpdateStatus(ctx context.Context, id int64, status models.ScheduleStatus) error {
	query := `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) CountDueWithin(ctx context.Context, before time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM schedules WHERE status IN ($1, $2) AND scheduled_at <= $3`

	var count int
	err := r.db.QueryRowContext(ctx, query, models.ScheduleStatusPending, models.ScheduleStatusScheduled, before).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}
