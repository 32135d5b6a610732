package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records planning calls so coordinator tests can verify how
// the timing modes are routed.
type fakeScheduler struct {
	simultaneous []time.Time
	staggered    []time.Time
	independent  []time.Time
	delaySeconds int
	waveIDs      []string
	err          error
}

func (f *fakeScheduler) CreateSimultaneous(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt time.Time, waveID string) ([]*models.Schedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.simultaneous = append(f.simultaneous, scheduledAt)
	f.waveIDs = append(f.waveIDs, waveID)
	schedules := make([]*models.Schedule, len(channelIDs))
	for i, channelID := range channelIDs {
		schedules[i] = &models.Schedule{
			ID:            int64(i + 1),
			ChannelID:     channelID,
			ContentItemID: &itemID,
			ScheduleType:  models.ScheduleTypeSimultaneous,
			ScheduledAt:   scheduledAt,
			WaveID:        waveID,
		}
	}
	return schedules, nil
}

func (f *fakeScheduler) CreateStaggered(ctx context.Context, itemID int64, channelIDs []int64, startTime time.Time, delaySeconds int, waveID string) ([]*models.Schedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.staggered = append(f.staggered, startTime)
	f.delaySeconds = delaySeconds
	f.waveIDs = append(f.waveIDs, waveID)
	schedules := make([]*models.Schedule, len(channelIDs))
	for i, channelID := range channelIDs {
		schedules[i] = &models.Schedule{
			ID:            int64(i + 1),
			ChannelID:     channelID,
			ContentItemID: &itemID,
			ScheduleType:  models.ScheduleTypeStaggered,
			ScheduledAt:   startTime.Add(time.Duration(i*delaySeconds) * time.Second),
			WaveID:        waveID,
		}
	}
	return schedules, nil
}

func (f *fakeScheduler) CreateIndependent(ctx context.Context, channelID int64, scheduledAt time.Time, itemID *int64) (*models.Schedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.independent = append(f.independent, scheduledAt)
	return &models.Schedule{
		ID:            int64(len(f.independent)),
		ChannelID:     channelID,
		ContentItemID: itemID,
		ScheduleType:  models.ScheduleTypeIndependent,
		ScheduledAt:   scheduledAt,
	}, nil
}

func (f *fakeScheduler) Pause(ctx context.Context, scheduleID int64) error { return nil }

func (f *fakeScheduler) Resume(ctx context.Context, scheduleID int64) error { return nil }

func (f *fakeScheduler) Cancel(ctx context.Context, scheduleID int64) error { return nil }

func (f *fakeScheduler) ExecutePending(ctx context.Context, before time.Time) ([]*models.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduler) Validate(ctx context.Context, scheduleID int64) (*transfer.ScheduleValidation, error) {
	return &transfer.ScheduleValidation{Valid: true}, nil
}

type fakeDistributions struct {
	byFilters []*models.Distribution
	bySlots   []*models.Distribution
	stats     map[int64]*transfer.DistributionStatistics
	allStats  *transfer.DistributionStatistics
}

func (f *fakeDistributions) AutoDistributeByFilters(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error) {
	return f.byFilters, nil
}

func (f *fakeDistributions) AutoDistributeBySchedule(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error) {
	return f.bySlots, nil
}

func (f *fakeDistributions) ManualDistribute(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt *time.Time, force bool) ([]*models.Distribution, error) {
	return nil, nil
}

func (f *fakeDistributions) RetryFailed(ctx context.Context, distributionID int64) error { return nil }

func (f *fakeDistributions) Statistics(ctx context.Context, channelID *int64, from, to *time.Time) (*transfer.DistributionStatistics, error) {
	empty := &transfer.DistributionStatistics{
		ByStatus: make(map[models.DistributionStatus]int),
		ByMethod: make(map[models.DistributionMethod]int),
	}
	if channelID == nil {
		if f.allStats != nil {
			return f.allStats, nil
		}
		return empty, nil
	}
	if stats, ok := f.stats[*channelID]; ok {
		return stats, nil
	}
	return empty, nil
}

type fakePipeline struct {
	result      *transfer.PipelineResult
	calls       int
	itemID      *int64
	skipPublish bool
}

func (f *fakePipeline) Run(ctx context.Context, channelID int64, sourceLocator string, existingItemID *int64, skipPublish bool) (*transfer.PipelineResult, error) {
	f.calls++
	f.itemID = existingItemID
	f.skipPublish = skipPublish
	if f.result != nil {
		return f.result, nil
	}
	return &transfer.PipelineResult{Status: PipelineCompleted}, nil
}

type coordinatorFixture struct {
	state         *OrchestrationState
	channels      *memChannels
	schedules     *memSchedules
	scheduler     *fakeScheduler
	pipeline      *fakePipeline
	distributions *fakeDistributions
	queue         JobQueueService
	dispatcher    *stubDispatcher
	coordinator   CoordinatorService
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		state:         NewOrchestrationState(newMemState()),
		channels:      newMemChannels(),
		schedules:     newMemSchedules(),
		scheduler:     &fakeScheduler{},
		pipeline:      &fakePipeline{},
		distributions: &fakeDistributions{stats: make(map[int64]*transfer.DistributionStatistics)},
		dispatcher:    &stubDispatcher{},
	}
	f.queue = NewJobQueueService(newMemJobs(), f.channels, newMemItems(), newMemDistributions(),
		f.state, &stubDiscoverer{}, &stubAcquirer{}, &stubProcessor{}, &stubPublisher{},
		time.Minute, 3)
	f.coordinator = NewCoordinatorService(f.state, f.channels, f.schedules,
		f.scheduler, f.pipeline, f.distributions, f.queue, f.dispatcher)
	return f
}

func (f *coordinatorFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.coordinator.Start(context.Background()))
}

func (f *coordinatorFixture) addChannel(t *testing.T, name, workflowRef string) *models.Channel {
	t.Helper()
	channel := &models.Channel{Name: name, Platform: "youtube", Active: true, CIWorkflowRef: workflowRef}
	_, err := f.channels.Create(context.Background(), channel)
	require.NoError(t, err)
	return channel
}

func TestCoordinatorLifecycle(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	status, err := f.coordinator.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.StartedAt)

	require.NoError(t, f.coordinator.Start(ctx))
	err = f.coordinator.Start(ctx)
	assert.True(t, IsValidationError(err), "double start is rejected")

	status, err = f.coordinator.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.False(t, status.Paused)
	assert.NotNil(t, status.StartedAt)

	require.NoError(t, f.coordinator.Pause(ctx))
	err = f.coordinator.Pause(ctx)
	assert.True(t, IsValidationError(err), "double pause is rejected")

	require.NoError(t, f.coordinator.Resume(ctx))
	err = f.coordinator.Resume(ctx)
	assert.True(t, IsValidationError(err), "resuming an unpaused coordinator is rejected")

	require.NoError(t, f.coordinator.Stop(ctx))
	err = f.coordinator.Stop(ctx)
	assert.True(t, IsValidationError(err), "double stop is rejected")

	status, err = f.coordinator.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.NotNil(t, status.StoppedAt)
}

func TestCoordinatorStopClearsPause(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	require.NoError(t, f.coordinator.Start(ctx))
	require.NoError(t, f.coordinator.Pause(ctx))
	require.NoError(t, f.coordinator.Stop(ctx))
	require.NoError(t, f.coordinator.Start(ctx))

	status, err := f.coordinator.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.False(t, status.Paused)
}

func TestCoordinationRequiresActiveCoordinator(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	channel := f.addChannel(t, "direct", "")

	_, err := f.coordinator.CoordinatePublication(ctx, 1, []int64{channel.ID}, models.ScheduleTypeSimultaneous, nil, 0)
	assert.True(t, IsValidationError(err), "stopped coordinator rejects work")

	_, err = f.coordinator.DistributeVideos(ctx)
	assert.True(t, IsValidationError(err))

	f.start(t)
	require.NoError(t, f.coordinator.Pause(ctx))

	_, err = f.coordinator.TriggerPipeline(ctx, channel.ID, "", nil, false)
	assert.True(t, IsValidationError(err), "paused coordinator rejects work")
}

func TestCoordinatePublicationTimingModes(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	at := time.Now().Add(3 * time.Hour)

	schedules, err := f.coordinator.CoordinatePublication(ctx, 1, []int64{1, 2}, models.ScheduleTypeSimultaneous, &at, 0)
	require.NoError(t, err)
	assert.Len(t, schedules, 2)
	require.Len(t, f.scheduler.simultaneous, 1)
	assert.Equal(t, at, f.scheduler.simultaneous[0])

	_, err = f.coordinator.CoordinatePublication(ctx, 1, []int64{1, 2}, models.ScheduleTypeStaggered, &at, 300)
	require.NoError(t, err)
	require.Len(t, f.scheduler.staggered, 1)
	assert.Equal(t, 300, f.scheduler.delaySeconds)

	schedules, err = f.coordinator.CoordinatePublication(ctx, 1, []int64{1, 2, 3}, models.ScheduleTypeIndependent, &at, 0)
	require.NoError(t, err)
	assert.Len(t, schedules, 3)
	assert.Len(t, f.scheduler.independent, 3)

	_, err = f.coordinator.CoordinatePublication(ctx, 1, []int64{1}, "sideways", &at, 0)
	assert.True(t, IsValidationError(err))
}

func TestCoordinatePublicationDefaultsOneHourOut(t *testing.T) {
	f := newCoordinatorFixture()
	f.start(t)

	_, err := f.coordinator.CoordinatePublication(context.Background(), 1, []int64{1}, models.ScheduleTypeSimultaneous, nil, 0)
	require.NoError(t, err)
	require.Len(t, f.scheduler.simultaneous, 1)
	assert.InDelta(t, time.Hour.Seconds(), time.Until(f.scheduler.simultaneous[0]).Seconds(), 5)
}

func TestTriggerPipelineDispatchesCIChannel(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	channel := f.addChannel(t, "ci channel", "ingest.yml")
	f.dispatcher.ack = "run-42"

	itemID := int64(7)
	trigger, err := f.coordinator.TriggerPipeline(ctx, channel.ID, "https://example.com/v1", &itemID, false)
	require.NoError(t, err)
	assert.Equal(t, "dispatched", trigger.Mode)
	assert.Equal(t, "run-42", trigger.Ack)
	assert.Nil(t, trigger.Result)
	assert.Equal(t, 0, f.pipeline.calls)

	require.Len(t, f.dispatcher.payloads, 1)
	assert.Equal(t, "ingest.yml", f.dispatcher.payloads[0]["workflow"])
	assert.Equal(t, "https://example.com/v1", f.dispatcher.payloads[0]["source"])
	assert.Equal(t, "7", f.dispatcher.payloads[0]["content_item_id"])
}

func TestTriggerPipelineRunsDirectChannel(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	channel := f.addChannel(t, "direct channel", "")
	f.pipeline.result = &transfer.PipelineResult{Status: PipelineCompleted, ItemID: 9}

	itemID := int64(9)
	trigger, err := f.coordinator.TriggerPipeline(ctx, channel.ID, "", &itemID, true)
	require.NoError(t, err)
	assert.Equal(t, "direct", trigger.Mode)
	require.NotNil(t, trigger.Result)
	assert.Equal(t, int64(9), trigger.Result.ItemID)
	assert.Equal(t, 1, f.pipeline.calls)
	assert.Empty(t, f.dispatcher.payloads)

	// item id and skip-publish reach the pipeline unchanged
	require.NotNil(t, f.pipeline.itemID)
	assert.Equal(t, itemID, *f.pipeline.itemID)
	assert.True(t, f.pipeline.skipPublish)
}

func TestTriggerPipelineUnknownChannel(t *testing.T) {
	f := newCoordinatorFixture()
	f.start(t)

	_, err := f.coordinator.TriggerPipeline(context.Background(), 99, "", nil, false)
	assert.True(t, IsNotFoundError(err))
}

func TestScheduleWavePublication(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	config := &transfer.WaveConfig{
		Timing:    models.ScheduleTypeSimultaneous,
		StartTime: time.Now().Add(time.Hour),
	}

	result, err := f.coordinator.ScheduleWavePublication(ctx, []int64{1}, config, []int64{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, result.WaveID)
	assert.Len(t, result.Schedules, 2)
	require.Len(t, f.scheduler.waveIDs, 1)
	assert.Equal(t, result.WaveID, f.scheduler.waveIDs[0])
}

func TestScheduleWavePublicationSharesOneWaveID(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	config := &transfer.WaveConfig{
		Timing:       models.ScheduleTypeStaggered,
		StartTime:    time.Now().Add(time.Hour),
		DelaySeconds: 600,
	}

	result, err := f.coordinator.ScheduleWavePublication(ctx, []int64{1, 2, 3}, config, []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, result.Schedules, 6)

	// one wave id spans every item of the request
	require.Len(t, f.scheduler.waveIDs, 3)
	for _, waveID := range f.scheduler.waveIDs {
		assert.Equal(t, result.WaveID, waveID)
	}
	for _, schedule := range result.Schedules {
		assert.Equal(t, result.WaveID, schedule.WaveID)
	}
}

func TestScheduleWavePublicationRejectsIndependent(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)

	_, err := f.coordinator.ScheduleWavePublication(ctx, []int64{1}, &transfer.WaveConfig{
		Timing:    models.ScheduleTypeIndependent,
		StartTime: time.Now().Add(time.Hour),
	}, []int64{1})
	assert.True(t, IsValidationError(err))

	_, err = f.coordinator.ScheduleWavePublication(ctx, []int64{1}, nil, []int64{1})
	assert.True(t, IsValidationError(err))

	_, err = f.coordinator.ScheduleWavePublication(ctx, nil, &transfer.WaveConfig{
		Timing:    models.ScheduleTypeSimultaneous,
		StartTime: time.Now().Add(time.Hour),
	}, []int64{1})
	assert.True(t, IsValidationError(err))
}

func TestMonitorChannels(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	healthy := f.addChannel(t, "healthy", "")
	degraded := f.addChannel(t, "degraded", "")
	ci := f.addChannel(t, "ci", "publish.yml")

	f.distributions.stats[degraded.ID] = &transfer.DistributionStatistics{
		Total:       5,
		ByStatus:    map[models.DistributionStatus]int{models.DistributionStatusFailed: 4},
		ByMethod:    map[models.DistributionMethod]int{},
		SuccessRate: 0.2,
	}
	f.dispatcher.pingErr = errors.New("redis down")

	statuses, err := f.coordinator.MonitorChannels(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byID := make(map[int64]*transfer.ChannelStatus)
	for _, status := range statuses {
		byID[status.ChannelID] = status
	}

	assert.Equal(t, transfer.ChannelHealthy, byID[healthy.ID].Health)
	assert.Equal(t, "direct", byID[healthy.ID].Mode)

	assert.Equal(t, transfer.ChannelWarning, byID[degraded.ID].Health)
	assert.Contains(t, byID[degraded.ID].Detail, "success rate")

	assert.Equal(t, transfer.ChannelError, byID[ci.ID].Health)
	assert.Equal(t, "ci", byID[ci.ID].Mode)
	assert.Contains(t, byID[ci.ID].Detail, "redis down")
}

func TestDistributeVideos(t *testing.T) {
	f := newCoordinatorFixture()
	f.start(t)
	f.distributions.byFilters = []*models.Distribution{{ID: 1}, {ID: 2}}
	f.distributions.bySlots = []*models.Distribution{{ID: 3}}

	run, err := f.coordinator.DistributeVideos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.FilterMatched)
	assert.Equal(t, 1, run.SlotMatched)
	assert.Equal(t, 3, run.Total)
}

func TestDashboard(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	f.start(t)
	f.addChannel(t, "one", "")
	f.distributions.allStats = &transfer.DistributionStatistics{
		Total:       10,
		ByStatus:    map[models.DistributionStatus]int{models.DistributionStatusPublished: 8},
		ByMethod:    map[models.DistributionMethod]int{},
		SuccessRate: 0.8,
	}

	_, err := f.schedules.Create(ctx, nil, &models.Schedule{
		ChannelID:   1,
		Status:      models.ScheduleStatusPending,
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, f.queue.Pause(ctx))

	dashboard, err := f.coordinator.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dashboard.Coordinator.Running)
	assert.Len(t, dashboard.Channels, 1)
	assert.Equal(t, 10, dashboard.Distributions.Total)
	assert.Equal(t, 1, dashboard.SchedulesDue7d)
	assert.True(t, dashboard.QueuePaused)
	assert.WithinDuration(t, time.Now(), dashboard.GeneratedAt, time.Minute)
}
