package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// Store keeps events, registrations and outbox messages in process memory.
// One mutex guards everything and is held for the whole of Admit and WithTx,
// which makes every transaction serial. Values handed out are copies.
type Store struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	regs   map[string][]*domain.Registration // by event id, insertion order
	outbox []domain.OutboxMessage

	// nothing relays from memory, so only the newest outboxCap messages are kept
	outboxCap int
}

const DefaultOutboxCap = 1000

var (
	_ registration.Store = (*Store)(nil)
	_ event.EventRepo    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		events:    make(map[string]*domain.Event),
		regs:      make(map[string][]*domain.Registration),
		outboxCap: DefaultOutboxCap,
	}
}

func (s *Store) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound()
	}
	return cloneEvent(e), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return s.GetEvent(ctx, id)
}

func (s *Store) List(_ context.Context) ([]*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListRegistrations(_ context.Context, eventID string) ([]*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs := s.regs[eventID]
	out := make([]*domain.Registration, 0, len(regs))
	for _, r := range regs {
		out = append(out, cloneRegistration(r))
	}
	return out, nil
}

// Outbox returns a copy of the retained messages, oldest first.
func (s *Store) Outbox() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.outbox...)
}

// appendOutbox must be called with s.mu held.
func (s *Store) appendOutbox(msgs ...domain.OutboxMessage) {
	s.outbox = append(s.outbox, msgs...)
	if over := len(s.outbox) - s.outboxCap; over > 0 {
		s.outbox = append(s.outbox[:0:0], s.outbox[over:]...)
	}
}

func (s *Store) Admit(ctx context.Context, eventID string, fn func(tx registration.AdmissionTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound()
	}
	tx := &admissionTx{s: s, ev: cloneEvent(e)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx event.TxEventRepo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &eventTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	for _, op := range tx.ops {
		op()
	}
	return nil
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Benefits = append([]string(nil), e.Benefits...)
	c.Schedule.Sessions = append([]domain.Session(nil), e.Schedule.Sessions...)
	return &c
}

func cloneRegistration(r *domain.Registration) *domain.Registration {
	c := *r
	c.SelectedDates = append([]domain.Date(nil), r.SelectedDates...)
	return &c
}
