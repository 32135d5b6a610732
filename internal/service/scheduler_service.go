package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

// conflictWindow is the exclusion zone around a schedule: no second
// non-terminal schedule may target the same (channel, item) inside it.
const conflictWindow = time.Minute

// SchedulerService plans and executes publications in three timing modes.
// ExecutePending is synchronous and driver-invoked; there is no internal
// timer.
type SchedulerService interface {
	CreateSimultaneous(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt time.Time, waveID string) ([]*models.Schedule, error)
	CreateStaggered(ctx context.Context, itemID int64, channelIDs []int64, startTime time.Time, delaySeconds int, waveID string) ([]*models.Schedule, error)
	CreateIndependent(ctx context.Context, channelID int64, scheduledAt time.Time, itemID *int64) (*models.Schedule, error)
	Pause(ctx context.Context, scheduleID int64) error
	Resume(ctx context.Context, scheduleID int64) error
	Cancel(ctx context.Context, scheduleID int64) error
	ExecutePending(ctx context.Context, before time.Time) ([]*models.Schedule, error)
	Validate(ctx context.Context, scheduleID int64) (*transfer.ScheduleValidation, error)
}

type schedulerService struct {
	db            *sql.DB
	schedules     repository.ScheduleRepository
	channels      repository.ChannelRepository
	items         repository.ContentItemRepository
	distributions repository.DistributionRepository
	queue         JobQueueService
	dispatcher    CIDispatcher
}

func NewSchedulerService(
	db *sql.DB,
	schedules repository.ScheduleRepository,
	channels repository.ChannelRepository,
	items repository.ContentItemRepository,
	distributions repository.DistributionRepository,
	queue JobQueueService,
	dispatcher CIDispatcher) SchedulerService {
	return &schedulerService{
		db:            db,
		schedules:     schedules,
		channels:      channels,
		items:         items,
		distributions: distributions,
		queue:         queue,
		dispatcher:    dispatcher,
	}
}

func (s *schedulerService) CreateSimultaneous(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt time.Time, waveID string) ([]*models.Schedule, error) {
	times := make([]time.Time, len(channelIDs))
	for i := range channelIDs {
		times[i] = scheduledAt
	}
	return s.createCoordinated(ctx, models.ScheduleTypeSimultaneous, itemID, channelIDs, times, 0, waveID)
}

// CreateStaggered schedules channel i at startTime + i*delaySeconds.
func (s *schedulerService) CreateStaggered(ctx context.Context, itemID int64, channelIDs []int64, startTime time.Time, delaySeconds int, waveID string) ([]*models.Schedule, error) {
	times := make([]time.Time, len(channelIDs))
	for i := range channelIDs {
		times[i] = startTime.Add(time.Duration(i*delaySeconds) * time.Second)
	}
	return s.createCoordinated(ctx, models.ScheduleTypeStaggered, itemID, channelIDs, times, delaySeconds, waveID)
}

func (s *schedulerService) createCoordinated(ctx context.Context, scheduleType models.ScheduleType, itemID int64, channelIDs []int64, times []time.Time, delaySeconds int, waveID string) ([]*models.Schedule, error) {
	if len(channelIDs) == 0 {
		return nil, NewValidationError("at least one channel is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NewNotFoundError("content item", itemID)
	}

	// validate every channel and every slot before creating anything, so a
	// conflict aborts with no schedules created
	channels := make([]*models.Channel, len(channelIDs))
	for i, channelID := range channelIDs {
		channel, err := s.channels.GetByID(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			return nil, NewNotFoundError("channel", channelID)
		}
		if !channel.Active {
			return nil, NewValidationError("channel %d is not active", channelID)
		}
		channels[i] = channel

		conflicts, err := s.schedules.FindConflicting(ctx, channelID, &itemID, times[i], conflictWindow)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, NewValidationError("channel %d already has a schedule for item %d within %s of %s",
				channelID, itemID, conflictWindow, times[i].Format(time.RFC3339))
		}
	}

	groupID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	schedules := make([]*models.Schedule, 0, len(channelIDs))
	for i, channelID := range channelIDs {
		schedule := &models.Schedule{
			ChannelID:           channelID,
			ContentItemID:       &itemID,
			ScheduleType:        scheduleType,
			ScheduledAt:         times[i],
			DelaySeconds:        i * delaySeconds,
			Status:              models.ScheduleStatusPending,
			CoordinationGroupID: groupID,
			WaveID:              waveID,
		}

		var id int64
		id, err = s.schedules.Create(ctx, tx, schedule)
		if err != nil {
			return nil, fmt.Errorf("error creating schedule: %w", err)
		}
		schedule.ID = id
		schedules = append(schedules, schedule)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return schedules, nil
}

func (s *schedulerService) CreateIndependent(ctx context.Context, channelID int64, scheduledAt time.Time, itemID *int64) (*models.Schedule, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, NewNotFoundError("channel", channelID)
	}
	if !channel.Active {
		return nil, NewValidationError("channel %d is not active", channelID)
	}

	if itemID != nil {
		item, err := s.items.GetByID(ctx, *itemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, NewNotFoundError("content item", *itemID)
		}
	}

	conflicts, err := s.schedules.FindConflicting(ctx, channelID, itemID, scheduledAt, conflictWindow)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, NewValidationError("channel %d already has a schedule within %s of %s",
			channelID, conflictWindow, scheduledAt.Format(time.RFC3339))
	}

	schedule := &models.Schedule{
		ChannelID:     channelID,
		ContentItemID: itemID,
		ScheduleType:  models.ScheduleTypeIndependent,
		ScheduledAt:   scheduledAt,
		Status:        models.ScheduleStatusPending,
	}

	id, err := s.schedules.Create(ctx, nil, schedule)
	if err != nil {
		return nil, fmt.Errorf("error creating schedule: %w", err)
	}
	schedule.ID = id
	return schedule, nil
}

func (s *schedulerService) Pause(ctx context.Context, scheduleID int64) error {
	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Status != models.ScheduleStatusPending && schedule.Status != models.ScheduleStatusScheduled {
		return NewValidationError("schedule %d is %s and cannot be paused", scheduleID, schedule.Status)
	}
	return s.schedules.SetPaused(ctx, scheduleID, true)
}

func (s *schedulerService) Resume(ctx context.Context, scheduleID int64) error {
	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !schedule.IsPaused {
		return NewValidationError("schedule %d is not paused", scheduleID)
	}
	return s.schedules.SetPaused(ctx, scheduleID, false)
}

func (s *schedulerService) Cancel(ctx context.Context, scheduleID int64) error {
	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Status == models.ScheduleStatusCompleted || schedule.Status == models.ScheduleStatusCancelled {
		return NewValidationError("schedule %d is already %s", scheduleID, schedule.Status)
	}

	cancelled, err := s.schedules.Cancel(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !cancelled {
		return NewValidationError("schedule %d can no longer be cancelled", scheduleID)
	}
	return nil
}

// ExecutePending runs every due, unpaused pending schedule. Channels with a
// CI workflow are dispatched fire-and-forget; the rest go through the local
// job queue as a publish job. Execution failures are terminal per schedule.
func (s *schedulerService) ExecutePending(ctx context.Context, before time.Time) ([]*models.Schedule, error) {
	due, err := s.schedules.ListDue(ctx, before)
	if err != nil {
		return nil, err
	}

	var executed []*models.Schedule
	for _, schedule := range due {
		claimed, err := s.schedules.ClaimForExecution(ctx, schedule.ID)
		if err != nil {
			return executed, err
		}
		if !claimed {
			continue
		}

		status, result, errMsg := s.executeOne(ctx, schedule)
		if err := s.schedules.MarkExecuted(ctx, schedule.ID, status, result, errMsg); err != nil {
			return executed, err
		}
		schedule.Status = status
		schedule.Result = result
		schedule.ErrorMessage = errMsg
		executed = append(executed, schedule)

		if status == models.ScheduleStatusFailed {
			slog.Info("schedule execution failed", "schedule_id", schedule.ID, "error", errMsg)
		}
	}
	return executed, nil
}

func (s *schedulerService) executeOne(ctx context.Context, schedule *models.Schedule) (models.ScheduleStatus, string, string) {
	channel, err := s.channels.GetByID(ctx, schedule.ChannelID)
	if err != nil {
		return models.ScheduleStatusFailed, "", err.Error()
	}
	if channel == nil {
		return models.ScheduleStatusFailed, "", fmt.Sprintf("channel %d not found", schedule.ChannelID)
	}

	if channel.HasCIWorkflow() {
		payload := map[string]string{"workflow": channel.CIWorkflowRef}
		if schedule.ContentItemID != nil {
			payload["content_item_id"] = fmt.Sprintf("%d", *schedule.ContentItemID)
		}
		ack, err := s.dispatcher.Dispatch(ctx, channel, payload)
		if err != nil {
			return models.ScheduleStatusFailed, "", err.Error()
		}
		return models.ScheduleStatusCompleted, fmt.Sprintf("ci dispatched: %s", ack), ""
	}

	if schedule.ContentItemID == nil {
		return models.ScheduleStatusFailed, "", "schedule has no content item to publish"
	}

	job, err := s.queue.Enqueue(ctx, schedule.ContentItemID, schedule.ChannelID, models.JobTypePublish, models.MaxJobPriority, 0)
	if err != nil {
		return models.ScheduleStatusFailed, "", err.Error()
	}
	return models.ScheduleStatusCompleted, fmt.Sprintf("publish job %d enqueued", job.ID), ""
}

// Validate is a non-mutating health check of a single schedule.
func (s *schedulerService) Validate(ctx context.Context, scheduleID int64) (*transfer.ScheduleValidation, error) {
	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	var issues []string

	if schedule.ScheduledAt.Before(time.Now()) && !schedule.Status.Terminal() {
		issues = append(issues, "scheduled time is in the past")
	}

	channel, err := s.channels.GetByID(ctx, schedule.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		issues = append(issues, fmt.Sprintf("channel %d no longer exists", schedule.ChannelID))
	} else if !channel.Active {
		issues = append(issues, fmt.Sprintf("channel %d is inactive", schedule.ChannelID))
	}

	if schedule.ContentItemID != nil {
		item, err := s.items.GetByID(ctx, *schedule.ContentItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			issues = append(issues, fmt.Sprintf("content item %d no longer exists", *schedule.ContentItemID))
		}
	}

	conflicts, err := s.schedules.FindConflicting(ctx, schedule.ChannelID, schedule.ContentItemID, schedule.ScheduledAt, conflictWindow)
	if err != nil {
		return nil, err
	}
	for _, conflict := range conflicts {
		if conflict.ID != schedule.ID {
			issues = append(issues, fmt.Sprintf("conflicts with schedule %d", conflict.ID))
		}
	}

	return &transfer.ScheduleValidation{Valid: len(issues) == 0, Issues: issues}, nil
}

func (s *schedulerService) getSchedule(ctx context.Context, scheduleID int64) (*models.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, NewNotFoundError("schedule", scheduleID)
	}
	return schedule, nil
}
