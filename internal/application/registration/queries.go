package registration

import (
	"context"
	"sort"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// Availability recomputes the per-date table from live registrations.
func (s *Service) Availability(ctx context.Context, eventID string) (*domain.Event, []domain.AvailableDate, error) {
	ev, regs, err := s.load(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return ev, domain.ComputeAvailability(ev, regs, s.today()), nil
}

// Registrations lists an event's registrations, newest first.
func (s *Service) Registrations(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	_, regs, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := append([]*domain.Registration(nil), regs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

func (s *Service) ParticipantsOnDate(ctx context.Context, eventID string, date domain.Date) ([]*domain.Registration, error) {
	if date.IsZero() {
		return nil, domain.ErrValidationField("date", "date is required")
	}
	ev, regs, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.Schedule.Contains(date) {
		return nil, domain.ErrValidationMeta("date is not part of the event schedule", map[string]string{
			"field": "date",
			"date":  date.String(),
		})
	}
	return domain.ParticipantsOnDate(regs, date), nil
}

func (s *Service) Stats(ctx context.Context, eventID string) (domain.EventStats, error) {
	ev, regs, err := s.load(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}
	return domain.Summarize(ev, regs, s.today()), nil
}

// Overview is Stats together with the event it describes, from a single read.
func (s *Service) Overview(ctx context.Context, eventID string) (*domain.Event, domain.EventStats, error) {
	ev, regs, err := s.load(ctx, eventID)
	if err != nil {
		return nil, domain.EventStats{}, err
	}
	return ev, domain.Summarize(ev, regs, s.today()), nil
}

func (s *Service) Roster(ctx context.Context, eventID string) (*domain.Event, []domain.RosterSection, error) {
	ev, regs, err := s.load(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return ev, domain.BuildRoster(ev, regs), nil
}

// ParticipantCounts returns distinct participant counts keyed by event id.
func (s *Service) ParticipantCounts(ctx context.Context, evs []*domain.Event) (map[string]int, error) {
	out := make(map[string]int, len(evs))
	for _, ev := range evs {
		regs, err := s.store.ListRegistrations(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		out[ev.ID] = domain.TotalParticipants(regs)
	}
	return out, nil
}

func (s *Service) Today() domain.Date { return s.today() }

func (s *Service) load(ctx context.Context, eventID string) (*domain.Event, []*domain.Registration, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	regs, err := s.store.ListRegistrations(ctx, ev.ID)
	if err != nil {
		return nil, nil, err
	}
	return ev, regs, nil
}
