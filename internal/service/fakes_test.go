package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

// In-memory repository doubles mirroring the SQL semantics of the real
// implementations.

type memChannels struct {
	mu       sync.Mutex
	seq      int64
	channels map[int64]*models.Channel
}

func newMemChannels() *memChannels {
	return &memChannels{channels: make(map[int64]*models.Channel)}
}

func (m *memChannels) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[id], nil
}

func (m *memChannels) List(ctx context.Context, activeOnly bool) ([]*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Channel
	for _, c := range m.channels {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memChannels) ListByIDs(ctx context.Context, ids []int64) ([]*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Channel
	for _, id := range ids {
		if c, ok := m.channels[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memChannels) Create(ctx context.Context, channel *models.Channel) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	channel.ID = m.seq
	m.channels[channel.ID] = channel
	return channel.ID, nil
}

func (m *memChannels) Update(ctx context.Context, channel *models.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channel.ID] = channel
	return nil
}

func (m *memChannels) SetToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.channels[id]; ok {
		c.AccessToken = accessToken
		c.TokenExpiresAt = expiresAt
	}
	return nil
}

func (m *memChannels) SetConnection(ctx context.Context, id int64, accountID, accountName, accessToken, refreshToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.channels[id]; ok {
		c.AccountID = accountID
		c.AccountName = accountName
		c.AccessToken = accessToken
		c.RefreshToken = refreshToken
		c.TokenExpiresAt = expiresAt
	}
	return nil
}

func (m *memChannels) ListByTokenExpiry(ctx context.Context, from, to time.Time) ([]*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Channel
	for _, c := range m.channels {
		if c.Active && c.RefreshToken != "" && !c.TokenExpiresAt.Before(from) && !c.TokenExpiresAt.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memChannels) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
	return nil
}

type memItems struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*models.ContentItem
}

func newMemItems() *memItems {
	return &memItems{items: make(map[int64]*models.ContentItem)}
}

func (m *memItems) GetByID(ctx context.Context, id int64) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *memItems) Create(ctx context.Context, item *models.ContentItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	item.ID = m.seq
	m.items[item.ID] = item
	return item.ID, nil
}

func (m *memItems) ListByChannel(ctx context.Context, channelID int64) ([]*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ContentItem
	for _, item := range m.items {
		if item.ChannelID == channelID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memItems) ListReady(ctx context.Context) ([]*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ContentItem
	for _, item := range m.items {
		if item.AcquisitionStatus == models.StageDone && item.ProcessingStatus == models.StageDone {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memItems) UpdateStageStatus(ctx context.Context, id int64, stage string, status models.StageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil
	}
	switch stage {
	case "acquisition":
		item.AcquisitionStatus = status
	case "processing":
		item.ProcessingStatus = status
	case "publication":
		item.PublicationStatus = status
	}
	return nil
}

func (m *memItems) UpdateAcquisition(ctx context.Context, item *models.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *memItems) UpdateProcessing(ctx context.Context, item *models.ContentItem) error {
	return m.UpdateAcquisition(ctx, item)
}

func (m *memItems) UpdatePublication(ctx context.Context, item *models.ContentItem) error {
	return m.UpdateAcquisition(ctx, item)
}

type memJobs struct {
	mu   sync.Mutex
	seq  int64
	jobs map[int64]*models.Job
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[int64]*models.Job)}
}

func (m *memJobs) Create(ctx context.Context, job *models.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *job
	stored.ID = m.seq
	m.jobs[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memJobs) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, nil
}

func (m *memJobs) ListPending(ctx context.Context, jobType *models.JobType, limit int) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, job := range m.jobs {
		if job.Status != models.JobStatusQueued {
			continue
		}
		if jobType != nil && job.JobType != *jobType {
			continue
		}
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].QueuedAt.Before(out[j].QueuedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobs) ClaimForProcessing(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobStatusQueued {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	job.Attempts++
	job.StartedAt = &startedAt
	job.ErrorMessage = ""
	return true, nil
}

func (m *memJobs) MarkCompleted(ctx context.Context, id int64, completedAt time.Time, durationMS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &completedAt
		job.DurationMS = durationMS
	}
	return nil
}

func (m *memJobs) MarkRetrying(ctx context.Context, id int64, errMsg string, retryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusRetrying
		job.ErrorMessage = errMsg
		job.RetryAt = &retryAt
	}
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = errMsg
	}
	return nil
}

func (m *memJobs) PromoteDueRetries(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var promoted int64
	for _, job := range m.jobs {
		if job.Status == models.JobStatusRetrying && job.RetryAt != nil && !job.RetryAt.After(now) {
			job.Status = models.JobStatusQueued
			job.QueuedAt = now
			job.RetryAt = nil
			promoted++
		}
	}
	return promoted, nil
}

func (m *memJobs) ResetForRetry(ctx context.Context, id int64, queuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobStatusFailed {
		return false, nil
	}
	job.Status = models.JobStatusQueued
	job.QueuedAt = queuedAt
	job.ErrorMessage = ""
	return true, nil
}

func (m *memJobs) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.JobStatus]int)
	for _, job := range m.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (m *memJobs) AverageDurationMS(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	var n int
	for _, job := range m.jobs {
		if job.Status == models.JobStatusCompleted {
			sum += job.DurationMS
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func (m *memJobs) AverageWaitMS(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	var n int
	for _, job := range m.jobs {
		if job.StartedAt != nil {
			sum += float64(job.StartedAt.Sub(job.QueuedAt).Milliseconds())
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

type memSchedules struct {
	mu        sync.Mutex
	seq       int64
	schedules map[int64]*models.Schedule
}

func newMemSchedules() *memSchedules {
	return &memSchedules{schedules: make(map[int64]*models.Schedule)}
}

func (m *memSchedules) Create(ctx context.Context, tx *sql.Tx, schedule *models.Schedule) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *schedule
	stored.ID = m.seq
	m.schedules[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memSchedules) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *memSchedules) ListByGroup(ctx context.Context, groupID string) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range m.schedules {
		if s.CoordinationGroupID == groupID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSchedules) ListByWave(ctx context.Context, waveID string) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range m.schedules {
		if s.WaveID == waveID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSchedules) ListDue(ctx context.Context, before time.Time) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range m.schedules {
		if s.Status == models.ScheduleStatusPending && !s.IsPaused && !s.ScheduledAt.After(before) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *memSchedules) FindConflicting(ctx context.Context, channelID int64, itemID *int64, at time.Time, window time.Duration) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range m.schedules {
		if s.ChannelID != channelID || s.Status.Terminal() {
			continue
		}
		if !sameItem(s.ContentItemID, itemID) {
			continue
		}
		if absDuration(s.ScheduledAt.Sub(at)) <= window {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memSchedules) ExistsNear(ctx context.Context, channelID int64, at time.Time, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedules {
		if s.ChannelID == channelID && !s.Status.Terminal() && absDuration(s.ScheduledAt.Sub(at)) <= window {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSchedules) ClaimForExecution(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusPending || s.IsPaused {
		return false, nil
	}
	s.Status = models.ScheduleStatusExecuting
	return true, nil
}

func (m *memSchedules) MarkExecuted(ctx context.Context, id int64, status models.ScheduleStatus, result, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		now := time.Now()
		s.Status = status
		s.Result = result
		s.ErrorMessage = errMsg
		s.ExecutedAt = &now
	}
	return nil
}

func (m *memSchedules) SetPaused(ctx context.Context, id int64, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		s.IsPaused = paused
	}
	return nil
}

func (m *memSchedules) Cancel(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status == models.ScheduleStatusCompleted || s.Status == models.ScheduleStatusCancelled {
		return false, nil
	}
	s.Status = models.ScheduleStatusCancelled
	return true, nil
}

func (m *memSchedules) UpdateStatus(ctx context.Context, id int64, status models.ScheduleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		s.Status = status
	}
	return nil
}

func (m *memSchedules) CountDueWithin(ctx context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.schedules {
		if s.Status == models.ScheduleStatusPending && !s.ScheduledAt.After(before) {
			count++
		}
	}
	return count, nil
}

func sameItem(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

type memDistributions struct {
	mu            sync.Mutex
	seq           int64
	distributions map[int64]*models.Distribution
}

func newMemDistributions() *memDistributions {
	return &memDistributions{distributions: make(map[int64]*models.Distribution)}
}

func (m *memDistributions) Create(ctx context.Context, dist *models.Distribution) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *dist
	stored.ID = m.seq
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.distributions[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memDistributions) GetByID(ctx context.Context, id int64) (*models.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.distributions[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, nil
}

func (m *memDistributions) ListByPair(ctx context.Context, itemID, channelID int64) ([]*models.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Distribution
	for _, d := range m.distributions {
		if d.ContentItemID == itemID && d.ChannelID == channelID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDistributions) ListForStatistics(ctx context.Context, channelID *int64, from, to *time.Time) ([]*models.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Distribution
	for _, d := range m.distributions {
		if channelID != nil && d.ChannelID != *channelID {
			continue
		}
		if from != nil && d.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && d.CreatedAt.After(*to) {
			continue
		}
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memDistributions) UpdateStatus(ctx context.Context, id int64, status models.DistributionStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.distributions[id]; ok {
		d.Status = status
		d.ErrorMessage = errMsg
	}
	return nil
}

func (m *memDistributions) AttachSchedule(ctx context.Context, id, scheduleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.distributions[id]; ok {
		d.ScheduleID = &scheduleID
		d.Status = models.DistributionStatusScheduled
	}
	return nil
}

func (m *memDistributions) ResetForRetry(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.distributions[id]; ok {
		d.Status = models.DistributionStatusAssigned
		d.ErrorMessage = ""
		d.RetryCount++
	}
	return nil
}

type memState struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemState() *memState {
	return &memState{values: make(map[string]string)}
}

func (m *memState) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memState) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Collaborator stubs.

type stubDiscoverer struct {
	items []*models.ContentItem
	err   error
	calls int
}

func (s *stubDiscoverer) Discover(ctx context.Context, channel *models.Channel, source string) ([]*models.ContentItem, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubAcquirer struct {
	result *AcquisitionResult
	err    error
	calls  int
}

func (s *stubAcquirer) Acquire(ctx context.Context, item *models.ContentItem) (*AcquisitionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &AcquisitionResult{Status: models.StageDone, Locator: "r2://raw", Size: 1024}, nil
}

type stubProcessor struct {
	result *ProcessResult
	err    error
	calls  int
}

func (s *stubProcessor) Process(ctx context.Context, item *models.ContentItem, preset string) (*ProcessResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &ProcessResult{Status: models.StageDone, Locator: "r2://processed", Size: 2048}, nil
}

type stubPublisher struct {
	result *PublishResult
	err    error
	calls  int
}

func (s *stubPublisher) Publish(ctx context.Context, item *models.ContentItem, channel *models.Channel) (*PublishResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &PublishResult{Status: models.StageDone, PlatformID: "vid123", PlatformURL: "https://youtu.be/vid123"}, nil
}

type stubDispatcher struct {
	ack      string
	err      error
	pingErr  error
	payloads []map[string]string
}

func (s *stubDispatcher) Dispatch(ctx context.Context, channel *models.Channel, payload map[string]string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.payloads = append(s.payloads, payload)
	if s.ack == "" {
		return "task-1", nil
	}
	return s.ack, nil
}

func (s *stubDispatcher) Ping(ctx context.Context) error {
	return s.pingErr
}
