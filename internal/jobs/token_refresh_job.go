package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/platform"
	"github.com/mckzv/channelpilot/internal/repository"
)

// TokenRefreshJob keeps channel OAuth tokens fresh by refreshing any token
// that expires within the next half hour.
type TokenRefreshJob struct {
	channels  repository.ChannelRepository
	publisher *platform.YouTubePublisher
}

func NewTokenRefreshJob(channels repository.ChannelRepository, publisher *platform.YouTubePublisher) *TokenRefreshJob {
	return &TokenRefreshJob{
		channels:  channels,
		publisher: publisher,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	channels, err := c.channels.ListByTokenExpiry(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, channel := range channels {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(channel *models.Channel) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.publisher.RefreshChannelToken(ctx, channel); err != nil {
				slog.Info("unable to refresh token", "channel_id", channel.ID, "error", err.Error())
			}
		}(channel)
	}

	wg.Wait()
}
