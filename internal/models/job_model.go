package models

import "time"

type JobType string

const (
	JobTypeDiscover JobType = "discover"
	JobTypeAcquire  JobType = "acquire"
	JobTypeProcess  JobType = "process"
	JobTypePublish  JobType = "publish"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeDiscover, JobTypeAcquire, JobTypeProcess, JobTypePublish:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

const (
	MinJobPriority = 0
	MaxJobPriority = 10
)

type Job struct {
	ID            int64     `db:"id" json:"id"`
	ContentItemID *int64    `db:"content_item_id" json:"content_item_id,omitempty"`
	ChannelID     int64     `db:"channel_id" json:"channel_id"`
	JobType       JobType   `db:"job_type" json:"job_type"`
	Status        JobStatus `db:"status" json:"status"`
	Priority      int       `db:"priority" json:"priority"`
	Attempts      int       `db:"attempts" json:"attempts"`
	MaxAttempts   int       `db:"max_attempts" json:"max_attempts"`
	ErrorMessage  string    `db:"error_message" json:"error_message"`
	// RetryAt is the not-eligible-before time for a retrying job.
	RetryAt     *time.Time `db:"retry_at" json:"retry_at,omitempty"`
	QueuedAt    time.Time  `db:"queued_at" json:"queued_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DurationMS  int64      `db:"duration_ms" json:"duration_ms"`
}
