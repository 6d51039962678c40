package settings

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
)

type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StatusColors returns the default palette overlaid with the user's overrides.
func (s *Service) StatusColors(ctx context.Context) (StatusColors, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	colors, err := s.load(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load settings", "error", err, "user_id", userID)
		return nil, err
	}
	return colors, nil
}

// SaveStatusColors merges colors into the stored overrides. Statuses not named
// in colors keep their previous value.
func (s *Service) SaveStatusColors(ctx context.Context, colors StatusColors) (StatusColors, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := (StatusColorsDTO{StatusColors: colors}).Validate(); appErr != nil {
		return nil, appErr
	}

	if err := s.repo.MergeStatusColors(ctx, userID, colors, s.now()); err != nil {
		s.logger.Error("failed to save status colors", "error", err, "user_id", userID)
		return nil, err
	}
	s.changed(ctx, userID)

	return s.StatusColors(ctx)
}

// ResetStatusColors drops every override.
func (s *Service) ResetStatusColors(ctx context.Context) (StatusColors, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearStatusColors(ctx, userID, s.now()); err != nil {
		s.logger.Error("failed to reset status colors", "error", err, "user_id", userID)
		return nil, err
	}
	s.changed(ctx, userID)
	return DefaultStatusColors(), nil
}

func (s *Service) Subscribe(ctx context.Context, onChange func(StatusColors), onError func(error)) (*events.Subscription, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	load := func(ctx context.Context) (StatusColors, error) {
		return s.load(ctx, userID)
	}
	reportErr := func(err error) {
		s.logger.Error("settings subscription reload failed", "error", err, "user_id", userID)
		if onError != nil {
			onError(err)
		}
	}
	return events.Watch(ctx, s.bus, events.EventTypeSettingsChanged, userID, load, onChange, reportErr), nil
}

func (s *Service) load(ctx context.Context, userID string) (StatusColors, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return DefaultStatusColors(), nil
	}
	return Overlay(stored.StatusColors), nil
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewChangeEvent(events.EventTypeSettingsChanged, userID)); err != nil {
		s.logger.Error("failed to publish change", "error", err, "event_type", events.EventTypeSettingsChanged, "user_id", userID)
	}
}
