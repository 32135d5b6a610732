package models

import "time"

// StageStatus tracks one of the three independent lifecycles of a content
// item: acquisition, processing and publication.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "done"
	StageFailed     StageStatus = "failed"
)

type ContentItem struct {
	ID                int64       `db:"id" json:"id"`
	ChannelID         int64       `db:"channel_id" json:"channel_id"`
	Title             string      `db:"title" json:"title"`
	SourceURL         string      `db:"source_url" json:"source_url"`
	ExternalID        string      `db:"external_id" json:"external_id"`
	AcquisitionStatus StageStatus `db:"acquisition_status" json:"acquisition_status"`
	ProcessingStatus  StageStatus `db:"processing_status" json:"processing_status"`
	PublicationStatus StageStatus `db:"publication_status" json:"publication_status"`

	// metadata evaluated by channel content filters
	ResolutionHeight int   `db:"resolution_height" json:"resolution_height"`
	Views            int64 `db:"views" json:"views"`
	DurationSeconds  int   `db:"duration_seconds" json:"duration_seconds"`
	Flagged          bool  `db:"flagged" json:"flagged"`

	RawURL       string     `db:"raw_url" json:"raw_url"`
	ProcessedURL string     `db:"processed_url" json:"processed_url"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	PlatformID   string     `db:"platform_id" json:"platform_id"`
	PlatformURL  string     `db:"platform_url" json:"platform_url"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
