package domain

import (
	"strings"
	"time"
)

type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	// Quota is the capacity of each calendar date, not of the whole event.
	Quota     int
	Schedule  Schedule
	Benefits  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventPhase string

const (
	PhaseUpcoming EventPhase = "upcoming"
	PhaseOngoing  EventPhase = "ongoing"
	PhaseEnded    EventPhase = "ended"
	// PhaseUnscheduled is reported when the schedule resolves to no dates.
	PhaseUnscheduled EventPhase = "unscheduled"
)

func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	e.Location = strings.TrimSpace(e.Location)
	benefits := e.Benefits[:0]
	for _, b := range e.Benefits {
		if b = strings.TrimSpace(b); b != "" {
			benefits = append(benefits, b)
		}
	}
	e.Benefits = benefits
}

func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrValidationField("title", "title is required")
	}
	if e.Location == "" {
		return ErrValidationField("location", "location is required")
	}
	if e.Quota < 1 {
		return ErrValidationField("quota", "quota must be at least 1")
	}
	return e.Schedule.Validate()
}

// TotalCapacity is quota times the number of scheduled dates.
func (e *Event) TotalCapacity() int {
	return e.Quota * len(e.Schedule.Dates())
}

func (e *Event) Phase(today Date) EventPhase {
	first, last, ok := e.Schedule.Bounds()
	switch {
	case !ok:
		return PhaseUnscheduled
	case today.Before(first):
		return PhaseUpcoming
	case today.After(last):
		return PhaseEnded
	default:
		return PhaseOngoing
	}
}

// DaysUntilStart is negative once the first date has passed.
func (e *Event) DaysUntilStart(today Date) (int, bool) {
	first, _, ok := e.Schedule.Bounds()
	if !ok {
		return 0, false
	}
	return today.DaysUntil(first), true
}
