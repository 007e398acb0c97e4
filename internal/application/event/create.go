package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/contracts/events"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

type EventInput struct {
	Title       string
	Description string
	Location    string
	Quota       int
	Schedule    domain.Schedule
	Benefits    []string
}

func (s *Service) Create(ctx context.Context, in EventInput) (*domain.Event, error) {
	now := s.clock.Now().UTC()
	e := &domain.Event{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Quota:       in.Quota,
		Schedule:    in.Schedule,
		Benefits:    append([]string(nil), in.Benefits...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(tx TxEventRepo) error {
		if err := tx.Insert(ctx, e); err != nil {
			return err
		}
		msg, err := events.NewOutboxMessage(events.RouteEventCreated, appCtx.GetRequestID(ctx), events.NewEventPayload(e), now)
		if err != nil {
			return err
		}
		return tx.InsertOutbox(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
