package models

import (
	"time"

	"github.com/lib/pq"
)

// ContentFilters is the per-channel predicate spec evaluated when items are
// auto-assigned. A zero value on a field disables that predicate, except
// ExcludeFlagged which only excludes when set.
type ContentFilters struct {
	MinResolution      int   `db:"min_resolution" json:"min_resolution"`
	MinViews           int64 `db:"min_views" json:"min_views"`
	MaxDurationSeconds int   `db:"max_duration_seconds" json:"max_duration_seconds"`
	ExcludeFlagged     bool  `db:"exclude_flagged" json:"exclude_flagged"`
}

// PostingSchedule drives slot-based distribution: PostsPerDay slots are
// filled from PreferredTimes ("15:04" local times) in order.
type PostingSchedule struct {
	PostsPerDay    int            `db:"posts_per_day" json:"posts_per_day"`
	PreferredTimes pq.StringArray `db:"preferred_times" json:"preferred_times"`
}

type Channel struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Platform         string          `db:"platform" json:"platform"`
	AccountID        string          `db:"account_id" json:"account_id"`
	AccountName      string          `db:"account_name" json:"account_name"`
	Active           bool            `db:"active" json:"active"`
	SourceURL        string          `db:"source_url" json:"source_url"`
	ProcessingPreset string          `db:"processing_preset" json:"processing_preset"`
	CIWorkflowRef    string          `db:"ci_workflow_ref" json:"ci_workflow_ref"`
	Filters          ContentFilters  `json:"filters"`
	Posting          PostingSchedule `json:"posting"`
	AccessToken      string          `db:"access_token" json:"-"`
	RefreshToken     string          `db:"refresh_token" json:"-"`
	TokenExpiresAt   time.Time       `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// HasCIWorkflow reports whether publication work for this channel is handed
// off to an external CI workflow instead of being run in-process.
func (c *Channel) HasCIWorkflow() bool {
	return c.CIWorkflowRef != ""
}
