package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
)

// TranscodeProcessor sends the acquired media to the external transcoding API
// and records the processed output location.
type TranscodeProcessor struct {
	config *config.Config
	client *http.Client
}

func NewTranscodeProcessor(cfg *config.Config) *TranscodeProcessor {
	return &TranscodeProcessor{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Minute},
	}
}

var _ service.Processor = (*TranscodeProcessor)(nil)

type transcodeRequest struct {
	SourceURL string `json:"source_url"`
	Preset    string `json:"preset"`
}

type transcodeResponse struct {
	Status    string `json:"status"`
	OutputURL string `json:"output_url"`
	FileSize  int64  `json:"file_size"`
	Error     string `json:"error"`
}

func (p *TranscodeProcessor) Process(ctx context.Context, item *models.ContentItem, preset string) (*service.ProcessResult, error) {
	if item.RawURL == "" {
		return nil, fmt.Errorf("content item %d has not been acquired", item.ID)
	}

	body, err := json.Marshal(transcodeRequest{SourceURL: item.RawURL, Preset: preset})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.ProcessingAPIURL+"/v1/transcode", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.ProcessingAPIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error calling processing api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var result transcodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding processing response: %w", err)
	}

	if result.Status != "completed" {
		return nil, fmt.Errorf("processing %s: %s", result.Status, result.Error)
	}

	return &service.ProcessResult{
		Status:  models.StageDone,
		Locator: result.OutputURL,
		Size:    result.FileSize,
	}, nil
}
