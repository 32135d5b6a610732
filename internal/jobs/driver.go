package job

import (
	"context"
	"log/slog"
	"time"

	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/service"
)

// Driver is the single external clock of the orchestration layer. Each Tick
// drains a batch of queue jobs, executes due schedules and runs the automatic
// distribution pass. Nothing inside the services runs on its own timer.
type Driver struct {
	config      *config.Config
	queue       service.JobQueueService
	scheduler   service.SchedulerService
	coordinator service.CoordinatorService
}

func NewDriver(
	cfg *config.Config,
	queue service.JobQueueService,
	scheduler service.SchedulerService,
	coordinator service.CoordinatorService) *Driver {
	return &Driver{
		config:      cfg,
		queue:       queue,
		scheduler:   scheduler,
		coordinator: coordinator,
	}
}

func (d *Driver) Tick() {
	ctx := context.Background()

	ran, err := d.queue.ProcessBatch(ctx, d.config.QueueBatchSize)
	if err != nil {
		slog.Info("queue batch failed", "error", err.Error())
	} else if ran > 0 {
		slog.Info("queue batch processed", "jobs", ran)
	}

	executed, err := d.scheduler.ExecutePending(ctx, time.Now())
	if err != nil {
		slog.Info("schedule execution failed", "error", err.Error())
	} else if len(executed) > 0 {
		slog.Info("schedules executed", "count", len(executed))
	}

	run, err := d.coordinator.DistributeVideos(ctx)
	if err != nil {
		// a stopped or paused coordinator is the normal idle state
		if !service.IsValidationError(err) {
			slog.Info("distribution pass failed", "error", err.Error())
		}
	} else if run.Total > 0 {
		slog.Info("distribution pass finished", "filter_matched", run.FilterMatched, "slot_matched", run.SlotMatched)
	}
}
