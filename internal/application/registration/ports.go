package registration

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// EventReader is satisfied by the stores and by the redis-backed cache in front of them.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

type Store interface {
	EventReader
	ListRegistrations(ctx context.Context, eventID string) ([]*domain.Registration, error)

	// Admit runs fn while holding the event's admission lock. Admissions and
	// cancellations for the same event never interleave. fn's writes commit
	// only if it returns nil. An unknown event yields a not_found error
	// without calling fn.
	Admit(ctx context.Context, eventID string, fn func(tx AdmissionTx) error) error
}

// AdmissionTx is the view of one event's registrations inside Admit.
type AdmissionTx interface {
	Event() *domain.Event
	EmailTaken(ctx context.Context, email string) (bool, error)
	CountBooked(ctx context.Context, dates []domain.Date) (map[domain.Date]int, error)
	// Insert returns a conflict error if (event, email) already exists.
	Insert(ctx context.Context, r *domain.Registration) error
	// DeleteByEmail returns the removed registration or a not_found error.
	DeleteByEmail(ctx context.Context, email string) (*domain.Registration, error)
	InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error
}
