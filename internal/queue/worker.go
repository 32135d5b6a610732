package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleCIDispatchTask runs a dispatched workflow. The channel's configured
// source feed is used unless the payload pins a specific content item.
func (w *Worker) HandleCIDispatchTask(ctx context.Context, task *asynq.Task) error {
	var payload CIDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	channel, err := w.channels.GetByID(ctx, payload.ChannelID)
	if err != nil {
		return err
	}
	if channel == nil {
		slog.Info("dispatched workflow for unknown channel", "channel_id", payload.ChannelID)
		return nil
	}

	result, err := w.pipeline.Run(ctx, payload.ChannelID, payload.Payload["source"], payload.ContentItemID, false)
	if err != nil {
		slog.Info("workflow run failed", "channel_id", payload.ChannelID, "error", err.Error())
		return err
	}

	slog.Info("workflow run finished",
		"channel_id", payload.ChannelID,
		"status", result.Status,
		"item_id", result.ItemID,
		"duration_ms", result.DurationMS)
	return nil
}
