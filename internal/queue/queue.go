package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
)

// Dispatcher hands workflow triggers to the task broker. The ack it returns
// is the broker task id, so a dispatch is acknowledged the moment the broker
// accepts it.
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

var _ service.CIDispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, channel *models.Channel, payload map[string]string) (string, error) {
	body := CIDispatchPayload{
		ChannelID: channel.ID,
		Payload:   payload,
	}
	if raw, ok := payload["content_item_id"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			body.ContentItemID = &id
		}
	}

	taskPayload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypeCIDispatch, taskPayload)

	info, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	slog.Info("workflow dispatched", "channel_id", channel.ID, "task_id", info.ID)
	return info.ID, nil
}

func (d *Dispatcher) Ping(ctx context.Context) error {
	return d.client.Ping()
}
