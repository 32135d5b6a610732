package transfer

import (
	"time"

	"github.com/mckzv/channelpilot/internal/models"
)

type QueueStatistics struct {
	CountsByStatus    map[models.JobStatus]int `json:"counts_by_status"`
	Total             int                      `json:"total"`
	SuccessRate       float64                  `json:"success_rate"`
	AverageDurationMS float64                  `json:"average_duration_ms"`
	AverageWaitMS     float64                  `json:"average_wait_ms"`
	Paused            bool                     `json:"paused"`
}

type DistributionStatistics struct {
	Total       int                               `json:"total"`
	ByStatus    map[models.DistributionStatus]int `json:"by_status"`
	ByMethod    map[models.DistributionMethod]int `json:"by_method"`
	SuccessRate float64                           `json:"success_rate"`
}

type ScheduleValidation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

type CoordinatorStatus struct {
	Running   bool       `json:"running"`
	Paused    bool       `json:"paused"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

type ChannelHealth string

const (
	ChannelHealthy ChannelHealth = "healthy"
	ChannelWarning ChannelHealth = "warning"
	ChannelError   ChannelHealth = "error"
)

type ChannelStatus struct {
	ChannelID     int64                   `json:"channel_id"`
	Name          string                  `json:"name"`
	Active        bool                    `json:"active"`
	Mode          string                  `json:"mode"`
	Health        ChannelHealth           `json:"health"`
	Detail        string                  `json:"detail,omitempty"`
	Distributions *DistributionStatistics `json:"distributions"`
}

type PipelineTrigger struct {
	Mode   string          `json:"mode"`
	Ack    string          `json:"ack,omitempty"`
	Result *PipelineResult `json:"result,omitempty"`
}

type StageResult struct {
	Status     models.StageStatus `json:"status"`
	Error      string             `json:"error,omitempty"`
	DurationMS int64              `json:"duration_ms"`
}

type PipelineResult struct {
	Status     string                 `json:"status"`
	ItemID     int64                  `json:"item_id,omitempty"`
	Stages     map[string]StageResult `json:"stages"`
	DurationMS int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
}

type WaveConfig struct {
	Timing       models.ScheduleType `json:"timing"`
	StartTime    time.Time           `json:"start_time"`
	DelaySeconds int                 `json:"delay_seconds"`
}

type WaveResult struct {
	WaveID    string             `json:"wave_id"`
	Schedules []*models.Schedule `json:"schedules"`
}

type DistributionRun struct {
	FilterMatched int `json:"filter_matched"`
	SlotMatched   int `json:"slot_matched"`
	Total         int `json:"total"`
}

type DashboardData struct {
	Coordinator    *CoordinatorStatus      `json:"coordinator"`
	Channels       []*ChannelStatus        `json:"channels"`
	Distributions  *DistributionStatistics `json:"distributions"`
	SchedulesDue7d int                     `json:"schedules_due_7d"`
	QueuePaused    bool                    `json:"queue_paused"`
	GeneratedAt    time.Time               `json:"generated_at"`
}
