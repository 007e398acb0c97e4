package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

const uniqueViolation = "23505"

// NewPool opens a pgx pool and pings it once.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// OpenDB exposes the pool through database/sql for the event repository.
func OpenDB(pool *pgxpool.Pool) *sql.DB {
	return stdlib.OpenDBFromPool(pool)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		e            domain.Event
		scheduleJSON []byte
		benefitsJSON []byte
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Quota,
		&scheduleJSON, &benefitsJSON, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrEventNotFound()
		}
		return nil, err
	}
	if err := json.Unmarshal(scheduleJSON, &e.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of event %s: %w", e.ID, err)
	}
	if len(benefitsJSON) > 0 {
		if err := json.Unmarshal(benefitsJSON, &e.Benefits); err != nil {
			return nil, fmt.Errorf("decode benefits of event %s: %w", e.ID, err)
		}
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// eventArgs encodes the JSONB columns as text so both drivers accept them.
func eventArgs(e *domain.Event) (schedule, benefits string, err error) {
	s, err := json.Marshal(e.Schedule)
	if err != nil {
		return "", "", fmt.Errorf("encode schedule: %w", err)
	}
	b := e.Benefits
	if b == nil {
		b = []string{}
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return "", "", fmt.Errorf("encode benefits: %w", err)
	}
	return string(s), string(bj), nil
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var (
		r     domain.Registration
		dates []time.Time
	)
	err := row.Scan(
		&r.ID, &r.EventID, &r.Name, &r.Email, &r.Phone, &r.Domisili, &r.Source, &r.Reason,
		&dates, &r.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	r.SelectedDates = make([]domain.Date, 0, len(dates))
	for _, t := range dates {
		r.SelectedDates = append(r.SelectedDates, domain.DateOf(t))
	}
	r.RegisteredAt = r.RegisteredAt.UTC()
	return &r, nil
}

func dateArgs(dates []domain.Date) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Time())
	}
	return out
}
