package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubePublisher uploads a processed item to the channel's YouTube account
// using the channel's stored OAuth tokens.
type YouTubePublisher struct {
	config   *config.Config
	channels repository.ChannelRepository
	client   *http.Client
}

func NewYouTubePublisher(cfg *config.Config, channels repository.ChannelRepository) *YouTubePublisher {
	return &YouTubePublisher{
		config:   cfg,
		channels: channels,
		client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

var _ service.Publisher = (*YouTubePublisher)(nil)

func (p *YouTubePublisher) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.config.GoogleClientID,
		ClientSecret: p.config.GoogleClientSecret,
		RedirectURL:  p.config.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "https://www.googleapis.com/auth/youtube.upload"},
		Endpoint:     google.Endpoint,
	}
}

func (p *YouTubePublisher) Publish(ctx context.Context, item *models.ContentItem, channel *models.Channel) (*service.PublishResult, error) {
	mediaURL := item.ProcessedURL
	if mediaURL == "" {
		mediaURL = item.RawURL
	}
	if mediaURL == "" {
		return nil, fmt.Errorf("content item %d has no media to publish", item.ID)
	}
	if channel.AccessToken == "" {
		return nil, fmt.Errorf("channel %d has no access token", channel.ID)
	}

	decryptedAccessToken, err := utils.Decrypt(channel.AccessToken, []byte(p.config.SecretKey))
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{AccessToken: decryptedAccessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	yt, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	tempFile, err := p.downloadMedia(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:      item.Title,
			CategoryId: "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := yt.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &service.PublishResult{
		Status:      models.StageDone,
		PlatformID:  response.Id,
		PlatformURL: fmt.Sprintf("https://youtu.be/%s", response.Id),
	}, nil
}

func (p *YouTubePublisher) downloadMedia(ctx context.Context, mediaURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}

	response, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading media: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	_, err = io.Copy(tempFile, response.Body)
	if err != nil {
		return "", fmt.Errorf("error saving media to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

// AccountInfo identifies the platform account a channel is connected to.
type AccountInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// ChannelToken is the outcome of an OAuth code exchange. Tokens are already
// encrypted with the application secret.
type ChannelToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Account      *AccountInfo
}

// ExchangeCode turns an OAuth authorization code into encrypted channel
// tokens plus the connected account's identity.
func (p *YouTubePublisher) ExchangeCode(ctx context.Context, code string) (*ChannelToken, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return nil, err
	}

	oauth2Config := p.oauthConfig()
	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return nil, err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if token.RefreshToken == "" {
		err = errors.New("refresh token is empty")
		slog.Info(err.Error())
		return nil, err
	}

	client := oauth2Config.Client(ctx, token)
	account, err := fetchAccountInfo(client)
	if err != nil {
		return nil, err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(p.config.SecretKey))
	if err != nil {
		return nil, err
	}
	encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(p.config.SecretKey))
	if err != nil {
		return nil, err
	}

	return &ChannelToken{
		AccessToken:  encryptedAccessToken,
		RefreshToken: encryptedRefreshToken,
		ExpiresAt:    token.Expiry,
		Account:      account,
	}, nil
}

// RefreshChannelToken exchanges the channel's refresh token for a fresh
// access token and stores it.
func (p *YouTubePublisher) RefreshChannelToken(ctx context.Context, channel *models.Channel) error {
	if channel.RefreshToken == "" {
		return fmt.Errorf("channel %d has no refresh token", channel.ID)
	}

	decryptedRefreshToken, err := utils.Decrypt(channel.RefreshToken, []byte(p.config.SecretKey))
	if err != nil {
		return err
	}

	conf := p.oauthConfig()
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(p.config.SecretKey))
	if err != nil {
		return err
	}

	return p.channels.SetToken(ctx, channel.ID, encryptedAccessToken, token.Expiry)
}

// RevokeAccess invalidates a channel's decrypted access token with Google.
func RevokeAccess(accessToken string) error {
	url := "https://oauth2.googleapis.com/revoke"

	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.URL.RawQuery = "token=" + accessToken

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

func fetchAccountInfo(client *http.Client) (*AccountInfo, error) {
	userInfoURL := "https://www.googleapis.com/oauth2/v1/userinfo"

	response, err := client.Get(userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var info AccountInfo
	if err := json.NewDecoder(response.Body).Decode(&info); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	return &info, nil
}
