package registration

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/contracts/events"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

// Cancel deletes the registration for (eventID, email). No counter is released:
// the freed slots show up the next time availability is computed.
func (s *Service) Cancel(ctx context.Context, eventID, email string) (*domain.Registration, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domain.ErrValidationField("event_id", "event id is required")
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrValidationField("email", "email is required")
	}

	var removed *domain.Registration
	err := s.store.Admit(ctx, eventID, func(tx AdmissionTx) error {
		r, err := tx.DeleteByEmail(ctx, email)
		if err != nil {
			return err
		}

		msg, err := events.NewOutboxMessage(events.RouteRegistrationCancelled, appCtx.GetRequestID(ctx),
			events.NewRegistrationPayload(r), s.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		removed = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
