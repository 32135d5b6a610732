package models

import "time"

type DistributionMethod string

const (
	DistributionMethodFilterMatch DistributionMethod = "filter_match"
	DistributionMethodSlotMatch   DistributionMethod = "slot_match"
	DistributionMethodManual      DistributionMethod = "manual"
)

type DistributionStatus string

const (
	DistributionStatusAssigned  DistributionStatus = "assigned"
	DistributionStatusScheduled DistributionStatus = "scheduled"
	DistributionStatusPublished DistributionStatus = "published"
	DistributionStatusFailed    DistributionStatus = "failed"
	DistributionStatusCancelled DistributionStatus = "cancelled"
)

type Distribution struct {
	ID             int64              `db:"id" json:"id"`
	ContentItemID  int64              `db:"content_item_id" json:"content_item_id"`
	ChannelID      int64              `db:"channel_id" json:"channel_id"`
	Method         DistributionMethod `db:"distribution_method" json:"distribution_method"`
	Status         DistributionStatus `db:"status" json:"status"`
	ScheduleID     *int64             `db:"schedule_id" json:"schedule_id,omitempty"`
	MatchedFilters string             `db:"matched_filters" json:"matched_filters"`
	ErrorMessage   string             `db:"error_message" json:"error_message"`
	RetryCount     int                `db:"retry_count" json:"retry_count"`
	MaxRetries     int                `db:"max_retries" json:"max_retries"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}
