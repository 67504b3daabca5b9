package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/pkg/validator"
	"schoolbooking/internal/repository"
)

const cacheKey = "schoolbooking:settings"

type Service struct {
	repo      SettingsRepository
	publisher Publisher
	logger    zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewService(repo SettingsRepository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "settings").Logger(),
	}
}

// UseRedisCache configures optional Redis caching of the settings document.
func (s *Service) UseRedisCache(client *redis.Client, ttl time.Duration) {
	s.redis = client
	s.cacheTTL = ttl
}

// Get returns the stored settings over defaults. The first call on an empty
// database stores the defaults.
func (s *Service) Get(ctx context.Context) (*domain.SchoolSettings, error) {
	var cached domain.SchoolSettings
	if s.readCache(ctx, &cached) {
		return &cached, nil
	}

	stored, err := s.repo.Get(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		def := domain.DefaultSettings()
		if err := s.repo.Save(ctx, &def); err != nil {
			return nil, fmt.Errorf("store default settings: %w", err)
		}
		stored = &def
	case err != nil:
		return nil, err
	}

	out := stored.WithDefaults()
	s.writeCache(ctx, out)
	return &out, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, req domain.SchoolSettings) (*domain.SchoolSettings, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	next := req.WithDefaults()
	next.ResourceTags = domain.CleanList(next.ResourceTags)
	if err := validator.Check(next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := next.CheckOrder(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := s.repo.Save(ctx, &next); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info().Int64("actor_id", actor.UserID).Msg("school settings updated")
	if s.publisher != nil {
		s.publisher.Publish(realtime.Event{Type: realtime.EventSettingsUpdated, Data: next})
	}
	return &next, nil
}

func (s *Service) readCache(ctx context.Context, out *domain.SchoolSettings) bool {
	if s.redis == nil || s.cacheTTL <= 0 {
		return false
	}
	val, err := s.redis.Get(ctx, cacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("settings cache read")
		}
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (s *Service) writeCache(ctx context.Context, val domain.SchoolSettings) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("settings cache write")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("settings cache invalidate")
	}
}
