package service

import (
	"context"
	"time"

	"github.com/mckzv/channelpilot/internal/repository"
)

const (
	stateKeyRunning     = "coordinator.running"
	stateKeyPaused      = "coordinator.paused"
	stateKeyStartedAt   = "coordinator.started_at"
	stateKeyStoppedAt   = "coordinator.stopped_at"
	stateKeyQueuePaused = "queue.paused"
)

// OrchestrationState holds the coordinator and queue flags in the injected
// system-state store, so that restarts observe the last recorded state. It
// is explicit shared state, not a package singleton.
type OrchestrationState struct {
	store repository.SystemStateRepository
}

func NewOrchestrationState(store repository.SystemStateRepository) *OrchestrationState {
	return &OrchestrationState{store: store}
}

func (s *OrchestrationState) getBool(ctx context.Context, key string) (bool, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

func (s *OrchestrationState) setBool(ctx context.Context, key string, value bool) error {
	str := "false"
	if value {
		str = "true"
	}
	return s.store.Set(ctx, key, str)
}

func (s *OrchestrationState) Running(ctx context.Context) (bool, error) {
	return s.getBool(ctx, stateKeyRunning)
}

func (s *OrchestrationState) SetRunning(ctx context.Context, running bool) error {
	return s.setBool(ctx, stateKeyRunning, running)
}

func (s *OrchestrationState) Paused(ctx context.Context) (bool, error) {
	return s.getBool(ctx, stateKeyPaused)
}

func (s *OrchestrationState) SetPaused(ctx context.Context, paused bool) error {
	return s.setBool(ctx, stateKeyPaused, paused)
}

func (s *OrchestrationState) QueuePaused(ctx context.Context) (bool, error) {
	return s.getBool(ctx, stateKeyQueuePaused)
}

func (s *OrchestrationState) SetQueuePaused(ctx context.Context, paused bool) error {
	return s.setBool(ctx, stateKeyQueuePaused, paused)
}

func (s *OrchestrationState) timestamp(ctx context.Context, key string) (*time.Time, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok || value == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *OrchestrationState) StartedAt(ctx context.Context) (*time.Time, error) {
	return s.timestamp(ctx, stateKeyStartedAt)
}

func (s *OrchestrationState) SetStartedAt(ctx context.Context, t time.Time) error {
	return s.store.Set(ctx, stateKeyStartedAt, t.Format(time.RFC3339))
}

func (s *OrchestrationState) StoppedAt(ctx context.Context) (*time.Time, error) {
	return s.timestamp(ctx, stateKeyStoppedAt)
}

func (s *OrchestrationState) SetStoppedAt(ctx context.Context, t time.Time) error {
	return s.store.Set(ctx, stateKeyStoppedAt, t.Format(time.RFC3339))
}
