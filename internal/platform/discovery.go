package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
)

// feedEntry is one row of a channel's source feed.
type feedEntry struct {
	ExternalID       string `json:"external_id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	ResolutionHeight int    `json:"resolution_height"`
	Views            int64  `json:"views"`
	DurationSeconds  int    `json:"duration_seconds"`
	Flagged          bool   `json:"flagged"`
}

// FeedDiscoverer reads a JSON feed of candidate items from a channel's source
// URL.
type FeedDiscoverer struct {
	client *http.Client
}

func NewFeedDiscoverer() *FeedDiscoverer {
	return &FeedDiscoverer{client: &http.Client{Timeout: 30 * time.Second}}
}

var _ service.Discoverer = (*FeedDiscoverer)(nil)

func (d *FeedDiscoverer) Discover(ctx context.Context, channel *models.Channel, source string) ([]*models.ContentItem, error) {
	feedURL := source
	if feedURL == "" {
		feedURL = channel.SourceURL
	}
	if feedURL == "" {
		return nil, fmt.Errorf("channel %d has no source feed", channel.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var entries []feedEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding feed: %w", err)
	}

	items := make([]*models.ContentItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, &models.ContentItem{
			ChannelID:         channel.ID,
			Title:             entry.Title,
			SourceURL:         entry.URL,
			ExternalID:        entry.ExternalID,
			AcquisitionStatus: models.StagePending,
			ProcessingStatus:  models.StagePending,
			PublicationStatus: models.StagePending,
			ResolutionHeight:  entry.ResolutionHeight,
			Views:             entry.Views,
			DurationSeconds:   entry.DurationSeconds,
			Flagged:           entry.Flagged,
		})
	}
	return items, nil
}
