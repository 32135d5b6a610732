package service

import (
	"testing"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateFilters(t *testing.T) {
	item := &models.ContentItem{
		ResolutionHeight: 1080,
		Views:            5000,
		DurationSeconds:  90,
		Flagged:          false,
	}

	tests := []struct {
		name    string
		filters models.ContentFilters
		ok      bool
		matched []string
	}{
		{
			name:    "no filters configured",
			filters: models.ContentFilters{},
			ok:      true,
			matched: nil,
		},
		{
			name: "all filters pass",
			filters: models.ContentFilters{
				MinResolution:      720,
				MinViews:           1000,
				MaxDurationSeconds: 120,
				ExcludeFlagged:     true,
			},
			ok:      true,
			matched: []string{"resolution>=720", "views>=1000", "duration<=120s", "not_flagged"},
		},
		{
			name:    "resolution too low",
			filters: models.ContentFilters{MinResolution: 1440},
			ok:      false,
		},
		{
			name:    "views too low",
			filters: models.ContentFilters{MinViews: 10000},
			ok:      false,
		},
		{
			name:    "duration too long",
			filters: models.ContentFilters{MaxDurationSeconds: 60},
			ok:      false,
		},
		{
			name:    "boundary values pass",
			filters: models.ContentFilters{MinResolution: 1080, MinViews: 5000, MaxDurationSeconds: 90},
			ok:      true,
			matched: []string{"resolution>=1080", "views>=5000", "duration<=90s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, matched := EvaluateFilters(item, tt.filters)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestEvaluateFiltersExcludesFlagged(t *testing.T) {
	flagged := &models.ContentItem{ResolutionHeight: 1080, Flagged: true}

	ok, matched := EvaluateFilters(flagged, models.ContentFilters{ExcludeFlagged: true})
	assert.False(t, ok)
	assert.Nil(t, matched)

	ok, _ = EvaluateFilters(flagged, models.ContentFilters{})
	assert.True(t, ok, "flagged items pass when the filter is not configured")
}
