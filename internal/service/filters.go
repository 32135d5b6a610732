package service

import (
	"fmt"

	"github.com/mckzv/channelpilot/internal/models"
)

// EvaluateFilters applies a channel's content-filter spec to an item's
// metadata. Every configured predicate must pass; a zero-valued predicate is
// not configured and always passes. The returned slice names the predicates
// that matched, for recording on the distribution.
func EvaluateFilters(item *models.ContentItem, filters models.ContentFilters) (bool, []string) {
	var matched []string

	if filters.MinResolution > 0 {
		if item.ResolutionHeight < filters.MinResolution {
			return false, nil
		}
		matched = append(matched, fmt.Sprintf("resolution>=%d", filters.MinResolution))
	}

	if filters.MinViews > 0 {
		if item.Views < filters.MinViews {
			return false, nil
		}
		matched = append(matched, fmt.Sprintf("views>=%d", filters.MinViews))
	}

	if filters.MaxDurationSeconds > 0 {
		if item.DurationSeconds > filters.MaxDurationSeconds {
			return false, nil
		}
		matched = append(matched, fmt.Sprintf("duration<=%ds", filters.MaxDurationSeconds))
	}

	if filters.ExcludeFlagged {
		if item.Flagged {
			return false, nil
		}
		matched = append(matched, "not_flagged")
	}

	return true, matched
}
