package queue

import (
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/service"
)

const TaskTypeCIDispatch = "ci:dispatch"

// CIDispatchPayload is the task body handed to the workflow runner.
type CIDispatchPayload struct {
	ChannelID     int64             `json:"channel_id"`
	ContentItemID *int64            `json:"content_item_id,omitempty"`
	Payload       map[string]string `json:"payload"`
}

// Worker consumes dispatched workflow tasks and runs them through the local
// pipeline.
type Worker struct {
	channels repository.ChannelRepository
	pipeline service.PipelineService
}

func NewWorker(channels repository.ChannelRepository, pipeline service.PipelineService) *Worker {
	return &Worker{
		channels: channels,
		pipeline: pipeline,
	}
}
