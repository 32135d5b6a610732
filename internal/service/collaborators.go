package service

import (
	"context"

	"github.com/mckzv/channelpilot/internal/models"
)

// Capability interfaces for the external media and dispatch operations. The
// orchestration layer drives these but never implements their internals;
// adapters live in internal/platform and internal/queue.

type Discoverer interface {
	Discover(ctx context.Context, channel *models.Channel, source string) ([]*models.ContentItem, error)
}

type AcquisitionResult struct {
	Status          models.StageStatus
	Locator         string
	Size            int64
	DurationSeconds int
}

type Acquirer interface {
	Acquire(ctx context.Context, item *models.ContentItem) (*AcquisitionResult, error)
}

type ProcessResult struct {
	Status  models.StageStatus
	Locator string
	Size    int64
}

type Processor interface {
	Process(ctx context.Context, item *models.ContentItem, preset string) (*ProcessResult, error)
}

type PublishResult struct {
	Status      models.StageStatus
	PlatformID  string
	PlatformURL string
}

type Publisher interface {
	Publish(ctx context.Context, item *models.ContentItem, channel *models.Channel) (*PublishResult, error)
}

// CIDispatcher fires an external workflow for a channel and returns an
// acknowledgment token. Dispatch is fire-and-forget: a returned ack means
// the trigger was accepted, not that the workflow ran.
type CIDispatcher interface {
	Dispatch(ctx context.Context, channel *models.Channel, payload map[string]string) (string, error)
	Ping(ctx context.Context) error
}
