package service

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

// healthWindow is how far back MonitorChannels and Dashboard look when
// computing per-channel distribution statistics.
const healthWindow = 7 * 24 * time.Hour

const dashboardStatsWindow = 30 * 24 * time.Hour

// CoordinatorService is the single entry point for operating the whole
// publication system: lifecycle flags, coordinated publication dispatch, wave
// scheduling, channel monitoring and the dashboard aggregate.
type CoordinatorService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Status(ctx context.Context) (*transfer.CoordinatorStatus, error)

	CoordinatePublication(ctx context.Context, itemID int64, channelIDs []int64, timing models.ScheduleType, startTime *time.Time, delaySeconds int) ([]*models.Schedule, error)
	TriggerPipeline(ctx context.Context, channelID int64, sourceLocator string, itemID *int64, skipPublish bool) (*transfer.PipelineTrigger, error)
	ScheduleWavePublication(ctx context.Context, itemIDs []int64, config *transfer.WaveConfig, channelIDs []int64) (*transfer.WaveResult, error)
	MonitorChannels(ctx context.Context) ([]*transfer.ChannelStatus, error)
	DistributeVideos(ctx context.Context) (*transfer.DistributionRun, error)
	Dashboard(ctx context.Context) (*transfer.DashboardData, error)
}

type coordinatorService struct {
	state         *OrchestrationState
	channels      repository.ChannelRepository
	schedules     repository.ScheduleRepository
	scheduler     SchedulerService
	pipeline      PipelineService
	distributions DistributionService
	queue         JobQueueService
	dispatcher    CIDispatcher
}

func NewCoordinatorService(
	state *OrchestrationState,
	channels repository.ChannelRepository,
	schedules repository.ScheduleRepository,
	scheduler SchedulerService,
	pipeline PipelineService,
	distributions DistributionService,
	queue JobQueueService,
	dispatcher CIDispatcher) CoordinatorService {
	return &coordinatorService{
		state:         state,
		channels:      channels,
		schedules:     schedules,
		scheduler:     scheduler,
		pipeline:      pipeline,
		distributions: distributions,
		queue:         queue,
		dispatcher:    dispatcher,
	}
}

func (s *coordinatorService) Start(ctx context.Context) error {
	running, err := s.state.Running(ctx)
	if err != nil {
		return err
	}
	if running {
		return NewValidationError("coordinator is already running")
	}
	if err := s.state.SetRunning(ctx, true); err != nil {
		return err
	}
	if err := s.state.SetPaused(ctx, false); err != nil {
		return err
	}
	return s.state.SetStartedAt(ctx, time.Now())
}

func (s *coordinatorService) Stop(ctx context.Context) error {
	running, err := s.state.Running(ctx)
	if err != nil {
		return err
	}
	if !running {
		return NewValidationError("coordinator is not running")
	}
	if err := s.state.SetRunning(ctx, false); err != nil {
		return err
	}
	if err := s.state.SetPaused(ctx, false); err != nil {
		return err
	}
	return s.state.SetStoppedAt(ctx, time.Now())
}

func (s *coordinatorService) Pause(ctx context.Context) error {
	running, err := s.state.Running(ctx)
	if err != nil {
		return err
	}
	if !running {
		return NewValidationError("coordinator is not running")
	}
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return NewValidationError("coordinator is already paused")
	}
	return s.state.SetPaused(ctx, true)
}

func (s *coordinatorService) Resume(ctx context.Context) error {
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return err
	}
	if !paused {
		return NewValidationError("coordinator is not paused")
	}
	return s.state.SetPaused(ctx, false)
}

func (s *coordinatorService) Status(ctx context.Context) (*transfer.CoordinatorStatus, error) {
	running, err := s.state.Running(ctx)
	if err != nil {
		return nil, err
	}
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return nil, err
	}
	startedAt, err := s.state.StartedAt(ctx)
	if err != nil {
		return nil, err
	}
	stoppedAt, err := s.state.StoppedAt(ctx)
	if err != nil {
		return nil, err
	}
	return &transfer.CoordinatorStatus{
		Running:   running,
		Paused:    paused,
		StartedAt: startedAt,
		StoppedAt: stoppedAt,
	}, nil
}

// requireActive rejects coordination work while the coordinator is stopped or
// paused. Read-only operations do not go through it.
func (s *coordinatorService) requireActive(ctx context.Context) error {
	running, err := s.state.Running(ctx)
	if err != nil {
		return err
	}
	if !running {
		return NewValidationError("coordinator is not running")
	}
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return NewValidationError("coordinator is paused")
	}
	return nil
}

// CoordinatePublication plans a publication of one item across channels in
// the requested timing mode. When startTime is nil the publication is planned
// one hour out.
func (s *coordinatorService) CoordinatePublication(ctx context.Context, itemID int64, channelIDs []int64, timing models.ScheduleType, startTime *time.Time, delaySeconds int) ([]*models.Schedule, error) {
	if err := s.requireActive(ctx); err != nil {
		return nil, err
	}
	if !timing.Valid() {
		return nil, NewValidationError("unknown timing mode %q", timing)
	}

	at := time.Now().Add(time.Hour)
	if startTime != nil {
		at = *startTime
	}

	switch timing {
	case models.ScheduleTypeSimultaneous:
		return s.scheduler.CreateSimultaneous(ctx, itemID, channelIDs, at, "")
	case models.ScheduleTypeStaggered:
		return s.scheduler.CreateStaggered(ctx, itemID, channelIDs, at, delaySeconds, "")
	default:
		var schedules []*models.Schedule
		for _, channelID := range channelIDs {
			schedule, err := s.scheduler.CreateIndependent(ctx, channelID, at, &itemID)
			if err != nil {
				return schedules, err
			}
			schedules = append(schedules, schedule)
		}
		return schedules, nil
	}
}

// TriggerPipeline hands a channel's ingestion either to its CI workflow or to
// the local pipeline, depending on how the channel is configured. A non-nil
// itemID resumes the pipeline from an already-discovered item in both modes.
func (s *coordinatorService) TriggerPipeline(ctx context.Context, channelID int64, sourceLocator string, itemID *int64, skipPublish bool) (*transfer.PipelineTrigger, error) {
	if err := s.requireActive(ctx); err != nil {
		return nil, err
	}

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, NewNotFoundError("channel", channelID)
	}

	if channel.HasCIWorkflow() {
		payload := map[string]string{"workflow": channel.CIWorkflowRef}
		if itemID != nil {
			payload["content_item_id"] = fmt.Sprintf("%d", *itemID)
		}
		if sourceLocator != "" {
			payload["source"] = sourceLocator
		}
		ack, err := s.dispatcher.Dispatch(ctx, channel, payload)
		if err != nil {
			return nil, err
		}
		return &transfer.PipelineTrigger{Mode: "dispatched", Ack: ack}, nil
	}

	result, err := s.pipeline.Run(ctx, channelID, sourceLocator, itemID, skipPublish)
	if err != nil {
		return nil, err
	}
	return &transfer.PipelineTrigger{Mode: "direct", Result: result}, nil
}

// ScheduleWavePublication plans a named wave over one or more items. One wave
// id spans every item of the request; each item still forms its own
// coordination group. Waves are inherently coordinated, so only the
// simultaneous and staggered timing modes are accepted.
func (s *coordinatorService) ScheduleWavePublication(ctx context.Context, itemIDs []int64, config *transfer.WaveConfig, channelIDs []int64) (*transfer.WaveResult, error) {
	if err := s.requireActive(ctx); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, NewValidationError("wave configuration is required")
	}
	if len(itemIDs) == 0 {
		return nil, NewValidationError("at least one content item is required")
	}
	if config.Timing != models.ScheduleTypeSimultaneous && config.Timing != models.ScheduleTypeStaggered {
		return nil, NewValidationError("wave timing must be %s or %s", models.ScheduleTypeSimultaneous, models.ScheduleTypeStaggered)
	}

	waveID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	var schedules []*models.Schedule
	for _, itemID := range itemIDs {
		var created []*models.Schedule
		if config.Timing == models.ScheduleTypeSimultaneous {
			created, err = s.scheduler.CreateSimultaneous(ctx, itemID, channelIDs, config.StartTime, waveID)
		} else {
			created, err = s.scheduler.CreateStaggered(ctx, itemID, channelIDs, config.StartTime, config.DelaySeconds, waveID)
		}
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, created...)
	}
	return &transfer.WaveResult{WaveID: waveID, Schedules: schedules}, nil
}

// MonitorChannels reports one status row per channel. A channel in CI mode is
// in error when its dispatcher is unreachable; a direct channel degrades to
// warning when its recent distribution success rate drops below half.
func (s *coordinatorService) MonitorChannels(ctx context.Context) ([]*transfer.ChannelStatus, error) {
	channels, err := s.channels.List(ctx, false)
	if err != nil {
		return nil, err
	}

	var dispatcherErr error
	dispatcherChecked := false

	statuses := make([]*transfer.ChannelStatus, 0, len(channels))
	for _, channel := range channels {
		from := time.Now().Add(-healthWindow)
		stats, err := s.distributions.Statistics(ctx, &channel.ID, &from, nil)
		if err != nil {
			return nil, err
		}

		status := &transfer.ChannelStatus{
			ChannelID:     channel.ID,
			Name:          channel.Name,
			Active:        channel.Active,
			Mode:          "direct",
			Health:        transfer.ChannelHealthy,
			Distributions: stats,
		}

		if channel.HasCIWorkflow() {
			status.Mode = "ci"
			if !dispatcherChecked {
				dispatcherErr = s.dispatcher.Ping(ctx)
				dispatcherChecked = true
			}
			if dispatcherErr != nil {
				status.Health = transfer.ChannelError
				status.Detail = dispatcherErr.Error()
			}
		}

		failed := stats.ByStatus[models.DistributionStatusFailed]
		if status.Health == transfer.ChannelHealthy && failed > 0 && stats.SuccessRate < 0.5 {
			status.Health = transfer.ChannelWarning
			status.Detail = "recent distribution success rate below 50%"
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// DistributeVideos runs both automatic matchers back to back, filter matching
// first so filter-eligible items take the better assignment.
func (s *coordinatorService) DistributeVideos(ctx context.Context) (*transfer.DistributionRun, error) {
	if err := s.requireActive(ctx); err != nil {
		return nil, err
	}

	byFilters, err := s.distributions.AutoDistributeByFilters(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	bySlots, err := s.distributions.AutoDistributeBySchedule(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return &transfer.DistributionRun{
		FilterMatched: len(byFilters),
		SlotMatched:   len(bySlots),
		Total:         len(byFilters) + len(bySlots),
	}, nil
}

func (s *coordinatorService) Dashboard(ctx context.Context) (*transfer.DashboardData, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := s.MonitorChannels(ctx)
	if err != nil {
		return nil, err
	}

	from := time.Now().Add(-dashboardStatsWindow)
	stats, err := s.distributions.Statistics(ctx, nil, &from, nil)
	if err != nil {
		return nil, err
	}

	due, err := s.schedules.CountDueWithin(ctx, time.Now().Add(healthWindow))
	if err != nil {
		return nil, err
	}

	queuePaused, err := s.queue.IsPaused(ctx)
	if err != nil {
		return nil, err
	}

	return &transfer.DashboardData{
		Coordinator:    status,
		Channels:       channels,
		Distributions:  stats,
		SchedulesDue7d: due,
		QueuePaused:    queuePaused,
		GeneratedAt:    time.Now(),
	}, nil
}
