package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// EventRepo manages event documents over database/sql.
type EventRepo struct {
	db *sql.DB
}

var _ event.EventRepo = (*EventRepo)(nil)

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, getEventSQL, id))
}

func (r *EventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, listEventsSQL)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *EventRepo) WithTx(ctx context.Context, fn func(tr event.TxEventRepo) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txEventRepo{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txEventRepo struct {
	tx *sql.Tx
}

func (r *txEventRepo) Insert(ctx context.Context, e *domain.Event) error {
	schedule, benefits, err := eventArgs(e)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, insertEventSQL,
		e.ID, e.Title, e.Description, e.Location, e.Quota,
		schedule, benefits, e.CreatedAt, e.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict("id", "event already exists")
	}
	return err
}

func (r *txEventRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return scanEvent(r.tx.QueryRowContext(ctx, selectEventForUpdateSQL, id))
}

func (r *txEventRepo) Update(ctx context.Context, e *domain.Event) error {
	schedule, benefits, err := eventArgs(e)
	if err != nil {
		return err
	}
	res, err := r.tx.ExecContext(ctx, updateEventSQL,
		e.ID, e.Title, e.Description, e.Location, e.Quota,
		schedule, benefits, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEventNotFound()
	}
	return nil
}

func (r *txEventRepo) DeleteCascade(ctx context.Context, id string) (int, error) {
	res, err := r.tx.ExecContext(ctx, deleteEventRegistrationsSQL, id)
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	removed, _ := res.RowsAffected()

	res, err = r.tx.ExecContext(ctx, deleteEventSQL, id)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrEventNotFound()
	}
	return int(removed), nil
}

func (r *txEventRepo) InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	_, err := r.tx.ExecContext(ctx, insertOutboxSQL,
		msg.MessageID, msg.RoutingKey, string(msg.Body), msg.CreatedAt.UTC(),
	)
	return err
}
