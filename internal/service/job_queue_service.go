package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

// JobQueueService is the durable, priority-ordered work queue with bounded
// retry. It has no internal timer: PromoteReadyRetries and ExecuteNext must
// be invoked by an external driver on a cadence.
type JobQueueService interface {
	Enqueue(ctx context.Context, contentItemID *int64, channelID int64, jobType models.JobType, priority, maxAttempts int) (*models.Job, error)
	ListPending(ctx context.Context, jobType *models.JobType, limit int) ([]*models.Job, error)
	ExecuteNext(ctx context.Context, jobType *models.JobType) (*models.Job, error)
	ProcessBatch(ctx context.Context, limit int) (int, error)
	PromoteReadyRetries(ctx context.Context) (int64, error)
	Retry(ctx context.Context, jobID int64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	IsPaused(ctx context.Context) (bool, error)
	Statistics(ctx context.Context) (*transfer.QueueStatistics, error)
}

type jobQueueService struct {
	jobs        repository.JobRepository
	channels    repository.ChannelRepository
	items       repository.ContentItemRepository
	state       *OrchestrationState
	stages      *stageRunner
	backoffBase time.Duration
	maxAttempts int
}

func NewJobQueueService(
	jobs repository.JobRepository,
	channels repository.ChannelRepository,
	items repository.ContentItemRepository,
	distributions repository.DistributionRepository,
	state *OrchestrationState,
	discoverer Discoverer,
	acquirer Acquirer,
	processor Processor,
	publisher Publisher,
	backoffBase time.Duration,
	maxAttempts int) JobQueueService {
	if backoffBase <= 0 {
		backoffBase = time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &jobQueueService{
		jobs:     jobs,
		channels: channels,
		items:    items,
		state:    state,
		stages: &stageRunner{
			items:         items,
			distributions: distributions,
			discoverer:    discoverer,
			acquirer:      acquirer,
			processor:     processor,
			publisher:     publisher,
		},
		backoffBase: backoffBase,
		maxAttempts: maxAttempts,
	}
}

func (s *jobQueueService) Enqueue(ctx context.Context, contentItemID *int64, channelID int64, jobType models.JobType, priority, maxAttempts int) (*models.Job, error) {
	if !jobType.Valid() {
		return nil, NewValidationError("unknown job type %q", jobType)
	}

	// out-of-range priority is clamped, not rejected
	if priority < models.MinJobPriority {
		priority = models.MinJobPriority
	}
	if priority > models.MaxJobPriority {
		priority = models.MaxJobPriority
	}
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}

	job := &models.Job{
		ContentItemID: contentItemID,
		ChannelID:     channelID,
		JobType:       jobType,
		Status:        models.JobStatusQueued,
		Priority:      priority,
		MaxAttempts:   maxAttempts,
		QueuedAt:      time.Now(),
	}

	id, err := s.jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("error creating job: %w", err)
	}
	job.ID = id
	return job, nil
}

func (s *jobQueueService) ListPending(ctx context.Context, jobType *models.JobType, limit int) ([]*models.Job, error) {
	if _, err := s.PromoteReadyRetries(ctx); err != nil {
		return nil, err
	}
	return s.jobs.ListPending(ctx, jobType, limit)
}

// ExecuteNext pops the head of the pending queue and runs it synchronously
// against the stage collaborator. Returns (nil, nil) when the queue is
// paused, empty, or the head was claimed by another caller.
func (s *jobQueueService) ExecuteNext(ctx context.Context, jobType *models.JobType) (*models.Job, error) {
	paused, err := s.IsPaused(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, nil
	}

	if _, err := s.PromoteReadyRetries(ctx); err != nil {
		return nil, err
	}

	pending, err := s.jobs.ListPending(ctx, jobType, 1)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	job := pending[0]

	startedAt := time.Now()
	claimed, err := s.jobs.ClaimForProcessing(ctx, job.ID, startedAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}
	job.Status = models.JobStatusProcessing
	job.Attempts++
	job.StartedAt = &startedAt

	execErr := s.runJob(ctx, job)
	completedAt := time.Now()
	duration := completedAt.Sub(startedAt).Milliseconds()

	if execErr == nil {
		if err := s.jobs.MarkCompleted(ctx, job.ID, completedAt, duration); err != nil {
			return nil, err
		}
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &completedAt
		job.DurationMS = duration
		return job, nil
	}

	job.ErrorMessage = execErr.Error()
	if job.Attempts < job.MaxAttempts {
		retryAt := completedAt.Add(s.backoffDelay(job.Attempts))
		if err := s.jobs.MarkRetrying(ctx, job.ID, execErr.Error(), retryAt); err != nil {
			return nil, err
		}
		job.Status = models.JobStatusRetrying
		job.RetryAt = &retryAt
	} else {
		if err := s.jobs.MarkFailed(ctx, job.ID, execErr.Error()); err != nil {
			return nil, err
		}
		job.Status = models.JobStatusFailed
	}

	slog.Info("job execution failed",
		"job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts, "error", execErr.Error())
	return job, nil
}

// ProcessBatch executes up to limit jobs and reports how many it ran.
func (s *jobQueueService) ProcessBatch(ctx context.Context, limit int) (int, error) {
	executed := 0
	for i := 0; i < limit; i++ {
		job, err := s.ExecuteNext(ctx, nil)
		if err != nil {
			return executed, err
		}
		if job == nil {
			break
		}
		executed++
	}
	return executed, nil
}

// backoffDelay is base * 2^(attempts-1).
func (s *jobQueueService) backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return s.backoffBase * time.Duration(1<<(attempts-1))
}

func (s *jobQueueService) runJob(ctx context.Context, job *models.Job) error {
	channel, err := s.channels.GetByID(ctx, job.ChannelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return NewNotFoundError("channel", job.ChannelID)
	}

	switch job.JobType {
	case models.JobTypeDiscover:
		_, err := s.stages.discover(ctx, channel, channel.SourceURL)
		return err
	case models.JobTypeAcquire:
		item, err := s.jobItem(ctx, job)
		if err != nil {
			return err
		}
		return s.stages.acquire(ctx, item)
	case models.JobTypeProcess:
		item, err := s.jobItem(ctx, job)
		if err != nil {
			return err
		}
		return s.stages.process(ctx, item, channel.ProcessingPreset)
	case models.JobTypePublish:
		item, err := s.jobItem(ctx, job)
		if err != nil {
			return err
		}
		return s.stages.publish(ctx, item, channel)
	}
	return NewValidationError("unknown job type %q", job.JobType)
}

func (s *jobQueueService) jobItem(ctx context.Context, job *models.Job) (*models.ContentItem, error) {
	if job.ContentItemID == nil {
		return nil, NewValidationError("job %d has no content item", job.ID)
	}
	item, err := s.items.GetByID(ctx, *job.ContentItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NewNotFoundError("content item", *job.ContentItemID)
	}
	return item, nil
}

func (s *jobQueueService) PromoteReadyRetries(ctx context.Context) (int64, error) {
	return s.jobs.PromoteDueRetries(ctx, time.Now())
}

// Retry is the explicit manual retry of a permanently failed job.
func (s *jobQueueService) Retry(ctx context.Context, jobID int64) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return NewNotFoundError("job", jobID)
	}
	if job.Status != models.JobStatusFailed {
		return NewValidationError("job %d is %s, only failed jobs can be retried", jobID, job.Status)
	}
	if job.Attempts >= job.MaxAttempts {
		return NewValidationError("job %d has exhausted its %d attempts", jobID, job.MaxAttempts)
	}

	reset, err := s.jobs.ResetForRetry(ctx, jobID, time.Now())
	if err != nil {
		return err
	}
	if !reset {
		return NewValidationError("job %d is no longer retryable", jobID)
	}
	return nil
}

func (s *jobQueueService) Pause(ctx context.Context) error {
	return s.state.SetQueuePaused(ctx, true)
}

func (s *jobQueueService) Resume(ctx context.Context) error {
	return s.state.SetQueuePaused(ctx, false)
}

func (s *jobQueueService) IsPaused(ctx context.Context) (bool, error) {
	return s.state.QueuePaused(ctx)
}

func (s *jobQueueService) Statistics(ctx context.Context) (*transfer.QueueStatistics, error) {
	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	completed := counts[models.JobStatusCompleted]
	failed := counts[models.JobStatusFailed]
	successRate := 0.0
	if completed+failed > 0 {
		successRate = float64(completed) / float64(completed+failed)
	}

	avgDuration, err := s.jobs.AverageDurationMS(ctx)
	if err != nil {
		return nil, err
	}
	avgWait, err := s.jobs.AverageWaitMS(ctx)
	if err != nil {
		return nil, err
	}
	paused, err := s.IsPaused(ctx)
	if err != nil {
		return nil, err
	}

	return &transfer.QueueStatistics{
		CountsByStatus:    counts,
		Total:             total,
		SuccessRate:       successRate,
		AverageDurationMS: avgDuration,
		AverageWaitMS:     avgWait,
		Paused:            paused,
	}, nil
}
