package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// -------------------------
// Lock order, for any one event:
//   1) events row (FOR UPDATE)
//   2) registrations rows of that event
//   3) registration_outbox insert
// Event update and delete take the same first lock, so they queue behind
// admissions and never see a half-applied one.
// -------------------------

type Store struct {
	pool *pgxpool.Pool
}

var _ registration.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, getEventSQL, id))
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	rows, err := s.pool.Query(ctx, listRegistrationsSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

func (s *Store) Admit(ctx context.Context, eventID string, fn func(tx registration.AdmissionTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ev, err := scanEvent(tx.QueryRow(ctx, selectEventForUpdateSQL, eventID))
	if err != nil {
		return err
	}

	if err := fn(&admissionTx{tx: tx, ev: ev}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

type admissionTx struct {
	tx pgx.Tx
	ev *domain.Event
}

func (a *admissionTx) Event() *domain.Event { return a.ev }

func (a *admissionTx) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	if err := a.tx.QueryRow(ctx, emailTakenSQL, a.ev.ID, email).Scan(&taken); err != nil {
		return false, fmt.Errorf("email lookup: %w", err)
	}
	return taken, nil
}

func (a *admissionTx) CountBooked(ctx context.Context, dates []domain.Date) (map[domain.Date]int, error) {
	out := make(map[domain.Date]int, len(dates))
	for _, d := range dates {
		out[d] = 0
	}
	if len(dates) == 0 {
		return out, nil
	}

	rows, err := a.tx.Query(ctx, countBookedSQL, a.ev.ID, dateArgs(dates))
	if err != nil {
		return nil, fmt.Errorf("count booked: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day time.Time
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("count booked: %w", err)
		}
		out[domain.DateOf(day)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count booked: %w", err)
	}
	return out, nil
}

func (a *admissionTx) Insert(ctx context.Context, r *domain.Registration) error {
	_, err := a.tx.Exec(ctx, insertRegistrationSQL,
		r.ID, r.EventID, r.Name, r.Email, r.Phone, r.Domisili, r.Source, r.Reason,
		dateArgs(r.SelectedDates), r.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict("email", "email is already registered for this event")
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (a *admissionTx) DeleteByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	r, err := scanRegistration(a.tx.QueryRow(ctx, deleteRegistrationByEmailSQL, a.ev.ID, email))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrRegistrationNotFound()
		}
		return nil, fmt.Errorf("delete registration: %w", err)
	}
	return r, nil
}

func (a *admissionTx) InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	_, err := a.tx.Exec(ctx, insertOutboxSQL,
		msg.MessageID, msg.RoutingKey, string(msg.Body), msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
