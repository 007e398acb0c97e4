package registration

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/contracts/events"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

type SubmitInput struct {
	EventID       string
	Participant   domain.Participant
	SelectedDates []domain.Date
}

// Submit admits a registration or rejects it whole. Checks run in this order:
// participant fields, requested dates against the schedule, duplicate email,
// then per-date capacity. Everything after the field check runs under the
// event's admission lock so the capacity count cannot go stale before the insert.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Registration, error) {
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return nil, domain.ErrValidationField("event_id", "event id is required")
	}

	p := in.Participant.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dates := domain.UniqueDates(in.SelectedDates)
	if len(dates) == 0 {
		return nil, domain.ErrValidationField("selected_dates", "select at least one date")
	}

	var created *domain.Registration
	err := s.store.Admit(ctx, eventID, func(tx AdmissionTx) error {
		ev := tx.Event()
		today := s.today()

		for _, d := range dates {
			if !ev.Schedule.Contains(d) {
				return domain.ErrValidationMeta("date is not part of the event schedule", map[string]string{
					"field": "selected_dates",
					"date":  d.String(),
				})
			}
			if s.rejectPast && d.Before(today) {
				return domain.ErrValidationMeta("date has already passed", map[string]string{
					"field": "selected_dates",
					"date":  d.String(),
				})
			}
		}

		taken, err := tx.EmailTaken(ctx, p.Email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrConflict("email", "email is already registered for this event")
		}

		booked, err := tx.CountBooked(ctx, dates)
		if err != nil {
			return err
		}
		var full []domain.Date
		for _, d := range dates {
			if booked[d] >= ev.Quota {
				full = append(full, d)
			}
		}
		if len(full) > 0 {
			return domain.ErrCapacity(full...)
		}

		r := &domain.Registration{
			ID:            s.newID(),
			EventID:       ev.ID,
			Name:          p.Name,
			Email:         p.Email,
			Phone:         p.Phone,
			Domisili:      p.Domisili,
			Source:        p.Source,
			Reason:        p.Reason,
			SelectedDates: dates,
			RegisteredAt:  s.clock.Now().UTC(),
		}
		if err := tx.Insert(ctx, r); err != nil {
			return err
		}

		msg, err := events.NewOutboxMessage(events.RouteRegistrationCreated, appCtx.GetRequestID(ctx),
			events.NewRegistrationPayload(r), r.RegisteredAt)
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
