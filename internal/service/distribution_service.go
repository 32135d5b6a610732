package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

const (
	defaultDistributionRetries = 3
	slotCollisionWindow        = time.Minute
	slotSearchDays             = 14
)

// DistributionService assigns ready content items to channels, either by
// filter matching or by posting-slot availability.
type DistributionService interface {
	AutoDistributeByFilters(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error)
	AutoDistributeBySchedule(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error)
	ManualDistribute(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt *time.Time, force bool) ([]*models.Distribution, error)
	RetryFailed(ctx context.Context, distributionID int64) error
	Statistics(ctx context.Context, channelID *int64, from, to *time.Time) (*transfer.DistributionStatistics, error)
}

type distributionService struct {
	distributions repository.DistributionRepository
	channels      repository.ChannelRepository
	items         repository.ContentItemRepository
	schedules     repository.ScheduleRepository
	scheduler     SchedulerService
}

func NewDistributionService(
	distributions repository.DistributionRepository,
	channels repository.ChannelRepository,
	items repository.ContentItemRepository,
	schedules repository.ScheduleRepository,
	scheduler SchedulerService) DistributionService {
	return &distributionService{
		distributions: distributions,
		channels:      channels,
		items:         items,
		schedules:     schedules,
		scheduler:     scheduler,
	}
}

func (s *distributionService) AutoDistributeByFilters(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error) {
	items, err := s.candidateItems(ctx, itemID)
	if err != nil {
		return nil, err
	}
	channels, err := s.candidateChannels(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	var created []*models.Distribution
	for _, item := range items {
		for _, channel := range channels {
			ok, matched := EvaluateFilters(item, channel.Filters)
			if !ok {
				continue
			}

			duplicate, err := s.hasActiveDistribution(ctx, item.ID, channel.ID)
			if err != nil {
				return created, err
			}
			if duplicate {
				continue
			}

			dist := &models.Distribution{
				ContentItemID:  item.ID,
				ChannelID:      channel.ID,
				Method:         models.DistributionMethodFilterMatch,
				Status:         models.DistributionStatusAssigned,
				MatchedFilters: strings.Join(matched, ","),
				MaxRetries:     defaultDistributionRetries,
			}
			id, err := s.distributions.Create(ctx, dist)
			if err != nil {
				return created, fmt.Errorf("error creating distribution: %w", err)
			}
			dist.ID = id
			created = append(created, dist)
		}
	}
	return created, nil
}

func (s *distributionService) AutoDistributeBySchedule(ctx context.Context, itemID *int64, channelIDs []int64) ([]*models.Distribution, error) {
	items, err := s.candidateItems(ctx, itemID)
	if err != nil {
		return nil, err
	}
	channels, err := s.candidateChannels(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	var created []*models.Distribution
	for _, item := range items {
		for _, channel := range channels {
			duplicate, err := s.hasActiveDistribution(ctx, item.ID, channel.ID)
			if err != nil {
				return created, err
			}
			if duplicate {
				continue
			}

			slot, err := s.nextAvailableSlot(ctx, channel, time.Now())
			if err != nil {
				slog.Info("no posting slot found", "channel_id", channel.ID, "error", err.Error())
				continue
			}

			dist := &models.Distribution{
				ContentItemID: item.ID,
				ChannelID:     channel.ID,
				Method:        models.DistributionMethodSlotMatch,
				Status:        models.DistributionStatusAssigned,
				MaxRetries:    defaultDistributionRetries,
			}
			id, err := s.distributions.Create(ctx, dist)
			if err != nil {
				return created, fmt.Errorf("error creating distribution: %w", err)
			}
			dist.ID = id

			itemRef := item.ID
			schedule, err := s.scheduler.CreateIndependent(ctx, channel.ID, slot, &itemRef)
			if err != nil {
				// the failed distribution is kept, not discarded
				if updateErr := s.distributions.UpdateStatus(ctx, id, models.DistributionStatusFailed, err.Error()); updateErr != nil {
					return created, updateErr
				}
				dist.Status = models.DistributionStatusFailed
				dist.ErrorMessage = err.Error()
			} else {
				if err := s.distributions.AttachSchedule(ctx, id, schedule.ID); err != nil {
					return created, err
				}
				dist.ScheduleID = &schedule.ID
				dist.Status = models.DistributionStatusScheduled
			}
			created = append(created, dist)
		}
	}
	return created, nil
}

func (s *distributionService) ManualDistribute(ctx context.Context, itemID int64, channelIDs []int64, scheduledAt *time.Time, force bool) ([]*models.Distribution, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NewNotFoundError("content item", itemID)
	}

	var created []*models.Distribution
	for _, channelID := range channelIDs {
		channel, err := s.channels.GetByID(ctx, channelID)
		if err != nil {
			return created, err
		}
		if channel == nil {
			return created, NewNotFoundError("channel", channelID)
		}

		if !force {
			if !channel.Active {
				continue
			}
			existing, err := s.distributions.ListByPair(ctx, itemID, channelID)
			if err != nil {
				return created, err
			}
			for _, dist := range existing {
				if dist.Status != models.DistributionStatusCancelled && dist.Status != models.DistributionStatusFailed {
					return created, NewValidationError("item %d is already distributed to channel %d (%s)",
						itemID, channelID, dist.Status)
				}
			}
		}

		dist := &models.Distribution{
			ContentItemID: itemID,
			ChannelID:     channelID,
			Method:        models.DistributionMethodManual,
			Status:        models.DistributionStatusAssigned,
			MaxRetries:    defaultDistributionRetries,
		}
		id, err := s.distributions.Create(ctx, dist)
		if err != nil {
			return created, fmt.Errorf("error creating distribution: %w", err)
		}
		dist.ID = id

		if scheduledAt != nil {
			itemRef := itemID
			schedule, err := s.scheduler.CreateIndependent(ctx, channelID, *scheduledAt, &itemRef)
			if err != nil {
				if updateErr := s.distributions.UpdateStatus(ctx, id, models.DistributionStatusFailed, err.Error()); updateErr != nil {
					return created, updateErr
				}
				dist.Status = models.DistributionStatusFailed
				dist.ErrorMessage = err.Error()
			} else {
				if err := s.distributions.AttachSchedule(ctx, id, schedule.ID); err != nil {
					return created, err
				}
				dist.ScheduleID = &schedule.ID
				dist.Status = models.DistributionStatusScheduled
			}
		}
		created = append(created, dist)
	}
	return created, nil
}

func (s *distributionService) RetryFailed(ctx context.Context, distributionID int64) error {
	dist, err := s.distributions.GetByID(ctx, distributionID)
	if err != nil {
		return err
	}
	if dist == nil {
		return NewNotFoundError("distribution", distributionID)
	}
	if dist.Status != models.DistributionStatusFailed {
		return NewValidationError("distribution %d is %s, only failed distributions can be retried", distributionID, dist.Status)
	}
	if dist.RetryCount >= dist.MaxRetries {
		return NewValidationError("distribution %d has exhausted its %d retries", distributionID, dist.MaxRetries)
	}
	return s.distributions.ResetForRetry(ctx, distributionID)
}

func (s *distributionService) Statistics(ctx context.Context, channelID *int64, from, to *time.Time) (*transfer.DistributionStatistics, error) {
	dists, err := s.distributions.ListForStatistics(ctx, channelID, from, to)
	if err != nil {
		return nil, err
	}

	stats := &transfer.DistributionStatistics{
		Total:    len(dists),
		ByStatus: make(map[models.DistributionStatus]int),
		ByMethod: make(map[models.DistributionMethod]int),
	}
	published := 0
	for _, dist := range dists {
		stats.ByStatus[dist.Status]++
		stats.ByMethod[dist.Method]++
		if dist.Status == models.DistributionStatusPublished {
			published++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(published) / float64(stats.Total)
	}
	return stats, nil
}

// candidateItems returns the given item, or every item whose acquisition and
// processing are both done.
func (s *distributionService) candidateItems(ctx context.Context, itemID *int64) ([]*models.ContentItem, error) {
	if itemID != nil {
		item, err := s.items.GetByID(ctx, *itemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, NewNotFoundError("content item", *itemID)
		}
		return []*models.ContentItem{item}, nil
	}
	return s.items.ListReady(ctx)
}

func (s *distributionService) candidateChannels(ctx context.Context, channelIDs []int64) ([]*models.Channel, error) {
	if len(channelIDs) > 0 {
		return s.channels.ListByIDs(ctx, channelIDs)
	}
	return s.channels.List(ctx, true)
}

// hasActiveDistribution reports whether the pair already has a scheduled or
// published distribution. Leftover assigned rows do not block a new run.
func (s *distributionService) hasActiveDistribution(ctx context.Context, itemID, channelID int64) (bool, error) {
	existing, err := s.distributions.ListByPair(ctx, itemID, channelID)
	if err != nil {
		return false, err
	}
	for _, dist := range existing {
		if dist.Status == models.DistributionStatusScheduled || dist.Status == models.DistributionStatusPublished {
			return true, nil
		}
	}
	return false, nil
}

// nextAvailableSlot walks the channel's preferred posting times forward from
// now, skipping slots that collide with an existing schedule, trying up to
// slotSearchDays days out.
func (s *distributionService) nextAvailableSlot(ctx context.Context, channel *models.Channel, now time.Time) (time.Time, error) {
	preferred := channel.Posting.PreferredTimes
	if len(preferred) == 0 {
		preferred = []string{"12:00"}
	}

	perDay := channel.Posting.PostsPerDay
	if perDay <= 0 || perDay > len(preferred) {
		perDay = len(preferred)
	}

	clock := make([]time.Time, 0, len(preferred))
	for _, raw := range preferred {
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return time.Time{}, NewValidationError("channel %d has invalid preferred time %q", channel.ID, raw)
		}
		clock = append(clock, t)
	}
	sort.Slice(clock, func(i, j int) bool { return clock[i].Before(clock[j]) })
	clock = clock[:perDay]

	for day := 0; day < slotSearchDays; day++ {
		base := now.AddDate(0, 0, day)
		for _, t := range clock {
			candidate := time.Date(base.Year(), base.Month(), base.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
			if !candidate.After(now) {
				continue
			}
			taken, err := s.schedules.ExistsNear(ctx, channel.ID, candidate, slotCollisionWindow)
			if err != nil {
				return time.Time{}, err
			}
			if taken {
				continue
			}
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no free posting slot within %d days for channel %d", slotSearchDays, channel.ID)
}
