package memory

import (
	"context"
	"errors"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// admissionTx runs with Store.mu held. Writes are buffered and applied by commit.
type admissionTx struct {
	s  *Store
	ev *domain.Event

	inserted *domain.Registration
	deleted  string
	outbox   []domain.OutboxMessage
}

func (tx *admissionTx) Event() *domain.Event { return tx.ev }

func (tx *admissionTx) EmailTaken(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, r := range tx.current() {
		if r.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (tx *admissionTx) CountBooked(_ context.Context, dates []domain.Date) (map[domain.Date]int, error) {
	all := domain.BookedCounts(tx.ev.ID, tx.current())
	out := make(map[domain.Date]int, len(dates))
	for _, d := range dates {
		out[d] = all[d]
	}
	return out, nil
}

func (tx *admissionTx) Insert(ctx context.Context, r *domain.Registration) error {
	if tx.inserted != nil {
		return errors.New("memory: one insert per admission")
	}
	taken, err := tx.EmailTaken(ctx, r.Email)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrConflict("email", "email is already registered for this event")
	}
	tx.inserted = cloneRegistration(r)
	return nil
}

func (tx *admissionTx) DeleteByEmail(_ context.Context, email string) (*domain.Registration, error) {
	for _, r := range tx.current() {
		if r.Email == email {
			tx.deleted = r.ID
			return cloneRegistration(r), nil
		}
	}
	return nil, domain.ErrRegistrationNotFound()
}

func (tx *admissionTx) InsertOutbox(_ context.Context, msg domain.OutboxMessage) error {
	tx.outbox = append(tx.outbox, msg)
	return nil
}

// current is the committed registrations with this tx's pending writes applied.
func (tx *admissionTx) current() []*domain.Registration {
	committed := tx.s.regs[tx.ev.ID]
	out := make([]*domain.Registration, 0, len(committed)+1)
	for _, r := range committed {
		if r.ID != tx.deleted {
			out = append(out, r)
		}
	}
	if tx.inserted != nil {
		out = append(out, tx.inserted)
	}
	return out
}

func (tx *admissionTx) commit() {
	tx.s.regs[tx.ev.ID] = tx.current()
	tx.s.appendOutbox(tx.outbox...)
}

// eventTx runs with Store.mu held. Reads see committed state; writes are queued.
type eventTx struct {
	s   *Store
	ops []func()
}

func (tx *eventTx) Insert(_ context.Context, e *domain.Event) error {
	if _, exists := tx.s.events[e.ID]; exists {
		return domain.ErrConflict("id", "event already exists")
	}
	c := cloneEvent(e)
	tx.ops = append(tx.ops, func() { tx.s.events[c.ID] = c })
	return nil
}

func (tx *eventTx) GetByIDForUpdate(_ context.Context, id string) (*domain.Event, error) {
	e, ok := tx.s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound()
	}
	return cloneEvent(e), nil
}

func (tx *eventTx) Update(_ context.Context, e *domain.Event) error {
	if _, ok := tx.s.events[e.ID]; !ok {
		return domain.ErrEventNotFound()
	}
	c := cloneEvent(e)
	tx.ops = append(tx.ops, func() { tx.s.events[c.ID] = c })
	return nil
}

func (tx *eventTx) DeleteCascade(_ context.Context, id string) (int, error) {
	if _, ok := tx.s.events[id]; !ok {
		return 0, domain.ErrEventNotFound()
	}
	n := len(tx.s.regs[id])
	tx.ops = append(tx.ops, func() {
		delete(tx.s.events, id)
		delete(tx.s.regs, id)
	})
	return n, nil
}

func (tx *eventTx) InsertOutbox(_ context.Context, msg domain.OutboxMessage) error {
	tx.ops = append(tx.ops, func() { tx.s.appendOutbox(msg) })
	return nil
}
