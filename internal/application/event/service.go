package event

import (
	"context"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

type Service struct {
	repo  EventRepo
	clock Clock
	cache CacheInvalidator
	newID func() string
}

func New(repo EventRepo, clock Clock, cache CacheInvalidator) *Service {
	if repo == nil {
		panic("event.New: nil repo")
	}
	if clock == nil {
		panic("event.New: nil clock")
	}
	return &Service{repo: repo, clock: clock, cache: cache, newID: uuid.NewString}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Event, error) {
	return s.repo.List(ctx)
}

// invalidate is best effort: a stale cache entry expires on its own TTL.
func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvent(ctx, id); err != nil {
		zlog.Warn().Err(err).Str("event_id", id).Msg("event cache invalidation failed")
	}
}
