package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
)

// stageRunner executes the four pipeline stages against the external
// collaborators and records per-stage outcome on the content item. It is
// shared by the pipeline coordinator and the job queue so both drive the
// same transitions.
type stageRunner struct {
	items         repository.ContentItemRepository
	distributions repository.DistributionRepository
	discoverer    Discoverer
	acquirer      Acquirer
	processor     Processor
	publisher     Publisher
}

// discover finds candidate items for the channel and persists the first one
// as the working item.
func (s *stageRunner) discover(ctx context.Context, channel *models.Channel, source string) (*models.ContentItem, error) {
	if source == "" {
		source = channel.SourceURL
	}

	found, err := s.discoverer.Discover(ctx, channel, source)
	if err != nil {
		return nil, NewProcessingError("discover", err)
	}
	if len(found) == 0 {
		return nil, NewProcessingError("discover", errors.New("no content found for source"))
	}

	item := found[0]
	item.ChannelID = channel.ID
	item.AcquisitionStatus = models.StagePending
	item.ProcessingStatus = models.StagePending
	item.PublicationStatus = models.StagePending

	id, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, NewProcessingError("discover", err)
	}
	item.ID = id
	return item, nil
}

func (s *stageRunner) acquire(ctx context.Context, item *models.ContentItem) error {
	if err := s.items.UpdateStageStatus(ctx, item.ID, "acquisition", models.StageInProgress); err != nil {
		return NewProcessingError("acquire", err)
	}

	result, err := s.acquirer.Acquire(ctx, item)
	if err != nil {
		s.markStageFailed(ctx, item, "acquisition")
		return NewProcessingError("acquire", err)
	}

	item.AcquisitionStatus = result.Status
	item.RawURL = result.Locator
	item.FileSize = result.Size
	if result.DurationSeconds > 0 {
		item.DurationSeconds = result.DurationSeconds
	}
	if err := s.items.UpdateAcquisition(ctx, item); err != nil {
		return NewProcessingError("acquire", err)
	}

	if result.Status != models.StageDone {
		return NewProcessingError("acquire", errors.New("acquisition did not complete"))
	}
	return nil
}

func (s *stageRunner) process(ctx context.Context, item *models.ContentItem, preset string) error {
	if err := s.items.UpdateStageStatus(ctx, item.ID, "processing", models.StageInProgress); err != nil {
		return NewProcessingError("process", err)
	}

	result, err := s.processor.Process(ctx, item, preset)
	if err != nil {
		s.markStageFailed(ctx, item, "processing")
		return NewProcessingError("process", err)
	}

	item.ProcessingStatus = result.Status
	item.ProcessedURL = result.Locator
	if result.Size > 0 {
		item.FileSize = result.Size
	}
	if err := s.items.UpdateProcessing(ctx, item); err != nil {
		return NewProcessingError("process", err)
	}

	if result.Status != models.StageDone {
		return NewProcessingError("process", errors.New("processing did not complete"))
	}
	return nil
}

func (s *stageRunner) publish(ctx context.Context, item *models.ContentItem, channel *models.Channel) error {
	if err := s.items.UpdateStageStatus(ctx, item.ID, "publication", models.StageInProgress); err != nil {
		return NewProcessingError("publish", err)
	}

	result, err := s.publisher.Publish(ctx, item, channel)
	if err != nil {
		s.markStageFailed(ctx, item, "publication")
		return NewProcessingError("publish", err)
	}

	item.PublicationStatus = result.Status
	item.PlatformID = result.PlatformID
	item.PlatformURL = result.PlatformURL
	if result.Status == models.StageDone {
		now := time.Now()
		item.PublishedAt = &now
	}
	if err := s.items.UpdatePublication(ctx, item); err != nil {
		return NewProcessingError("publish", err)
	}

	if result.Status != models.StageDone {
		return NewProcessingError("publish", errors.New("publication did not complete"))
	}

	s.markDistributionsPublished(ctx, item.ID, channel.ID)
	return nil
}

func (s *stageRunner) markStageFailed(ctx context.Context, item *models.ContentItem, stage string) {
	if err := s.items.UpdateStageStatus(ctx, item.ID, stage, models.StageFailed); err != nil {
		slog.Info(err.Error())
	}
}

// markDistributionsPublished closes the loop on distribution records for a
// successfully published (item, channel) pair.
func (s *stageRunner) markDistributionsPublished(ctx context.Context, itemID, channelID int64) {
	dists, err := s.distributions.ListByPair(ctx, itemID, channelID)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, dist := range dists {
		if dist.Status == models.DistributionStatusAssigned || dist.Status == models.DistributionStatusScheduled {
			if err := s.distributions.UpdateStatus(ctx, dist.ID, models.DistributionStatusPublished, ""); err != nil {
				slog.Info(err.Error())
			}
		}
	}
}
