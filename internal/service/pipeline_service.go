package service

import (
	"context"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

const (
	StageDiscover = "discover"
	StageAcquire  = "acquire"
	StageProcess  = "process"
	StagePublish  = "publish"
)

const (
	PipelineCompleted = "completed"
	PipelineFailed    = "failed"
)

// PipelineService runs the discover -> acquire -> process -> publish
// sequence for one content item. A stage failure stops the run immediately;
// there is no compensation of earlier stages.
type PipelineService interface {
	Run(ctx context.Context, channelID int64, sourceLocator string, existingItemID *int64, skipPublish bool) (*transfer.PipelineResult, error)
}

type pipelineService struct {
	channels repository.ChannelRepository
	items    repository.ContentItemRepository
	stages   *stageRunner
}

func NewPipelineService(
	channels repository.ChannelRepository,
	items repository.ContentItemRepository,
	distributions repository.DistributionRepository,
	discoverer Discoverer,
	acquirer Acquirer,
	processor Processor,
	publisher Publisher) PipelineService {
	return &pipelineService{
		channels: channels,
		items:    items,
		stages: &stageRunner{
			items:         items,
			distributions: distributions,
			discoverer:    discoverer,
			acquirer:      acquirer,
			processor:     processor,
			publisher:     publisher,
		},
	}
}

func (s *pipelineService) Run(ctx context.Context, channelID int64, sourceLocator string, existingItemID *int64, skipPublish bool) (*transfer.PipelineResult, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, NewNotFoundError("channel", channelID)
	}

	result := &transfer.PipelineResult{
		Status: PipelineCompleted,
		Stages: make(map[string]transfer.StageResult),
	}
	start := time.Now()
	defer func() {
		result.DurationMS = time.Since(start).Milliseconds()
	}()

	var item *models.ContentItem

	if existingItemID != nil {
		item, err = s.items.GetByID(ctx, *existingItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, NewNotFoundError("content item", *existingItemID)
		}
	} else {
		item, err = s.runStage(result, StageDiscover, func() (*models.ContentItem, error) {
			return s.stages.discover(ctx, channel, sourceLocator)
		})
		if err != nil {
			return result, nil
		}
	}
	result.ItemID = item.ID

	if _, err := s.runStage(result, StageAcquire, func() (*models.ContentItem, error) {
		return item, s.stages.acquire(ctx, item)
	}); err != nil {
		return result, nil
	}

	if _, err := s.runStage(result, StageProcess, func() (*models.ContentItem, error) {
		return item, s.stages.process(ctx, item, channel.ProcessingPreset)
	}); err != nil {
		return result, nil
	}

	if !skipPublish {
		if _, err := s.runStage(result, StagePublish, func() (*models.ContentItem, error) {
			return item, s.stages.publish(ctx, item, channel)
		}); err != nil {
			return result, nil
		}
	}

	return result, nil
}

// runStage wraps one stage with timing and failure capture. A failed stage
// marks the whole run failed and the caller stops.
func (s *pipelineService) runStage(result *transfer.PipelineResult, name string, fn func() (*models.ContentItem, error)) (*models.ContentItem, error) {
	start := time.Now()
	item, err := fn()
	stage := transfer.StageResult{
		Status:     models.StageDone,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		stage.Status = models.StageFailed
		stage.Error = err.Error()
		result.Status = PipelineFailed
		result.Error = err.Error()
	}
	result.Stages[name] = stage
	return item, err
}
