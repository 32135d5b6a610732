package models

import "time"

type ScheduleType string

const (
	ScheduleTypeSimultaneous ScheduleType = "simultaneous"
	ScheduleTypeStaggered    ScheduleType = "staggered"
	ScheduleTypeIndependent  ScheduleType = "independent"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeSimultaneous, ScheduleTypeStaggered, ScheduleTypeIndependent:
		return true
	}
	return false
}

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusExecuting ScheduleStatus = "executing"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Terminal reports whether a schedule can no longer execute. Non-terminal
// schedules participate in the per-(channel, item) conflict window.
func (s ScheduleStatus) Terminal() bool {
	switch s {
	case ScheduleStatusCompleted, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	}
	return false
}

type Schedule struct {
	ID                  int64          `db:"id" json:"id"`
	ChannelID           int64          `db:"channel_id" json:"channel_id"`
	ContentItemID       *int64         `db:"content_item_id" json:"content_item_id,omitempty"`
	ScheduleType        ScheduleType   `db:"schedule_type" json:"schedule_type"`
	ScheduledAt         time.Time      `db:"scheduled_at" json:"scheduled_at"`
	DelaySeconds        int            `db:"delay_seconds" json:"delay_seconds"`
	Status              ScheduleStatus `db:"status" json:"status"`
	CoordinationGroupID string         `db:"coordination_group_id" json:"coordination_group_id"`
	WaveID              string         `db:"wave_id" json:"wave_id"`
	IsPaused            bool           `db:"is_paused" json:"is_paused"`
	Result              string         `db:"result" json:"result"`
	ErrorMessage        string         `db:"error_message" json:"error_message"`
	ExecutedAt          *time.Time     `db:"executed_at" json:"executed_at,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}
