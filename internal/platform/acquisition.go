package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
)

// maxDownloadBytes caps a single source download at 2 GiB.
const maxDownloadBytes = 2 << 30

// HTTPAcquirer downloads a discovered item's source media and stores it in
// the media bucket.
type HTTPAcquirer struct {
	storage *Storage
	client  *http.Client
}

func NewHTTPAcquirer(storage *Storage) *HTTPAcquirer {
	return &HTTPAcquirer{
		storage: storage,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

var _ service.Acquirer = (*HTTPAcquirer)(nil)

func (a *HTTPAcquirer) Acquire(ctx context.Context, item *models.ContentItem) (*service.AcquisitionResult, error) {
	if item.SourceURL == "" {
		return nil, fmt.Errorf("content item %d has no source url", item.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error downloading source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	file, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error reading source body: %w", err)
	}

	kind, err := filetype.Match(file)
	if err != nil {
		return nil, err
	}
	if kind == filetype.Unknown || kind.MIME.Type != "video" {
		return nil, fmt.Errorf("source is not a video (detected %s)", kind.MIME.Value)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("raw/%s.%s", id, kind.Extension)

	if err := a.storage.Upload(ctx, key, file, kind.MIME.Value); err != nil {
		return nil, err
	}

	return &service.AcquisitionResult{
		Status:          models.StageDone,
		Locator:         a.storage.PublicURL(key),
		Size:            int64(len(file)),
		DurationSeconds: item.DurationSeconds,
	}, nil
}
