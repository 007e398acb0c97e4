package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type EventRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// List returns events newest first.
	List(ctx context.Context) ([]*domain.Event, error)
	WithTx(ctx context.Context, fn func(tx TxEventRepo) error) error
}

type TxEventRepo interface {
	Insert(ctx context.Context, e *domain.Event) error
	// GetByIDForUpdate takes the same lock admissions take.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error)
	Update(ctx context.Context, e *domain.Event) error
	// DeleteCascade removes the event with all of its registrations and
	// reports how many registrations were removed.
	DeleteCascade(ctx context.Context, id string) (int, error)
	InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error
}

// CacheInvalidator drops cached copies of an event after a committed change.
type CacheInvalidator interface {
	InvalidateEvent(ctx context.Context, id string) error
}
