package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/mckzv/channelpilot/internal/models"
)

type SessionClaims struct {
	Label string `json:"label"`
	jwt.RegisteredClaims
}

type ChannelCreation struct {
	Name             string                 `json:"name"`
	Platform         string                 `json:"platform"`
	AccountID        string                 `json:"account_id"`
	AccountName      string                 `json:"account_name"`
	Active           bool                   `json:"active"`
	SourceURL        string                 `json:"source_url"`
	ProcessingPreset string                 `json:"processing_preset"`
	CIWorkflowRef    string                 `json:"ci_workflow_ref"`
	Filters          models.ContentFilters  `json:"filters"`
	Posting          models.PostingSchedule `json:"posting"`
}

type EnqueueRequest struct {
	ContentItemID *int64 `json:"content_item_id,omitempty"`
	ChannelID     int64  `json:"channel_id"`
	JobType       string `json:"job_type"`
	Priority      int    `json:"priority"`
	MaxAttempts   int    `json:"max_attempts"`
}

type ScheduleCreation struct {
	ScheduleType  string  `json:"schedule_type"`
	ContentItemID *int64  `json:"content_item_id,omitempty"`
	ChannelID     int64   `json:"channel_id,omitempty"`
	ChannelIDs    []int64 `json:"channel_ids,omitempty"`
	ScheduledAt   string  `json:"scheduled_at"`
	DelaySeconds  int     `json:"delay_seconds,omitempty"`
	WaveID        string  `json:"wave_id,omitempty"`
}

type DistributionRequest struct {
	ContentItemID *int64  `json:"content_item_id,omitempty"`
	ChannelIDs    []int64 `json:"channel_ids,omitempty"`
}

type ManualDistributionRequest struct {
	ContentItemID int64   `json:"content_item_id"`
	ChannelIDs    []int64 `json:"channel_ids"`
	ScheduledAt   string  `json:"scheduled_at,omitempty"`
	Force         bool    `json:"force"`
}

type PublicationRequest struct {
	ContentItemID int64   `json:"content_item_id"`
	ChannelIDs    []int64 `json:"channel_ids"`
	Timing        string  `json:"timing"`
	ScheduledAt   string  `json:"scheduled_at,omitempty"`
	DelaySeconds  int     `json:"delay_seconds,omitempty"`
}

type WaveRequest struct {
	ContentItemIDs []int64 `json:"content_item_ids"`
	ChannelIDs     []int64 `json:"channel_ids"`
	Timing         string  `json:"timing"`
	StartTime      string  `json:"start_time"`
	DelaySeconds   int     `json:"delay_seconds,omitempty"`
}

type PipelineRequest struct {
	ChannelID     int64  `json:"channel_id"`
	ContentItemID *int64 `json:"content_item_id,omitempty"`
	SourceLocator string `json:"source_locator,omitempty"`
	SkipPublish   bool   `json:"skip_publish"`
}
