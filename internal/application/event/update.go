package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/contracts/events"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

// EventPatch is a partial update; nil fields are left alone.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Quota       *int
	Schedule    *domain.Schedule
	Benefits    *[]string
}

// Update never evicts registrations. A lowered quota or a removed date only
// affects what availability reports from now on.
func (s *Service) Update(ctx context.Context, id string, p EventPatch) (*domain.Event, error) {
	var updated *domain.Event
	err := s.repo.WithTx(ctx, func(tx TxEventRepo) error {
		e, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if p.Title != nil {
			e.Title = *p.Title
		}
		if p.Description != nil {
			e.Description = *p.Description
		}
		if p.Location != nil {
			e.Location = *p.Location
		}
		if p.Quota != nil {
			e.Quota = *p.Quota
		}
		if p.Schedule != nil {
			e.Schedule = *p.Schedule
		}
		if p.Benefits != nil {
			e.Benefits = append([]string(nil), (*p.Benefits)...)
		}
		e.Normalize()
		if err := e.Validate(); err != nil {
			return err
		}
		e.UpdatedAt = s.clock.Now().UTC()

		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		msg, err := events.NewOutboxMessage(events.RouteEventUpdated, appCtx.GetRequestID(ctx), events.NewEventPayload(e), e.UpdatedAt)
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}
