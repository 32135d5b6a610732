package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/pkg/utils"
)

const maxApiKeys = 5

type ApiKeyService interface {
	Create(ctx context.Context, label string) (string, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Authorize(ctx context.Context, apiKey string) (bool, error)
	Remove(ctx context.Context, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, label string) (string, error) {
	if label == "" {
		return "", NewValidationError("label is required")
	}

	keys, err := s.k.List(ctx)
	if err != nil {
		return "", err
	}
	if len(keys) >= maxApiKeys {
		return "", NewValidationError("only %d API keys can be created", maxApiKeys)
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error generating API key")
	}

	apiKey := &models.ApiKey{
		Label:  label,
		ApiKey: key,
	}

	_, err = s.k.Create(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("error saving API key")
	}
	return key, nil
}

func (s *apiKeyService) Authorize(ctx context.Context, apiKey string) (bool, error) {
	return s.k.Exists(ctx, apiKey)
}

func (s *apiKeyService) List(ctx context.Context) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) Remove(ctx context.Context, keyID int64) error {
	if keyID == 0 {
		return NewValidationError("key id is not valid")
	}
	return s.k.Remove(ctx, keyID)
}
