package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

const (
	Version  = 1
	Producer = "registration-service"
)

// Routing keys on the topic exchange.
const (
	RouteEventCreated          = "event.created"
	RouteEventUpdated          = "event.updated"
	RouteEventDeleted          = "event.deleted"
	RouteRegistrationCreated   = "registration.created"
	RouteRegistrationCancelled = "registration.canceled"
)

// DomainEventEnvelope is the canonical envelope for everything this service publishes.
type DomainEventEnvelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

type EventPayload struct {
	EventID  string `json:"event_id"`
	Title    string `json:"title,omitempty"`
	Quota    int    `json:"quota,omitempty"`
	Dates    int    `json:"dates,omitempty"`
	Summary  string `json:"schedule_summary,omitempty"`
	Location string `json:"location,omitempty"`
}

type EventDeletedPayload struct {
	EventID              string `json:"event_id"`
	RemovedRegistrations int    `json:"removed_registrations"`
}

type RegistrationPayload struct {
	RegistrationID string        `json:"registration_id"`
	EventID        string        `json:"event_id"`
	Email          string        `json:"email"`
	Name           string        `json:"name,omitempty"`
	SelectedDates  []domain.Date `json:"selected_dates"`
	RegisteredAt   time.Time     `json:"registered_at"`
}

func NewEventPayload(e *domain.Event) EventPayload {
	return EventPayload{
		EventID:  e.ID,
		Title:    e.Title,
		Quota:    e.Quota,
		Dates:    len(e.Schedule.Dates()),
		Summary:  e.Schedule.Summary(),
		Location: e.Location,
	}
}

func NewRegistrationPayload(r *domain.Registration) RegistrationPayload {
	return RegistrationPayload{
		RegistrationID: r.ID,
		EventID:        r.EventID,
		Email:          r.Email,
		Name:           r.Name,
		SelectedDates:  r.SelectedDates,
		RegisteredAt:   r.RegisteredAt,
	}
}

// NewOutboxMessage wraps payload in an envelope. The message id is generated here
// and stays stable across publish retries.
func NewOutboxMessage[T any](routingKey, traceID string, payload T, now time.Time) (domain.OutboxMessage, error) {
	env := DomainEventEnvelope[T]{
		Version:    Version,
		Producer:   Producer,
		TraceID:    traceID,
		MessageID:  uuid.NewString(),
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal %s envelope: %w", routingKey, err)
	}
	return domain.OutboxMessage{
		MessageID:  env.MessageID,
		RoutingKey: routingKey,
		Body:       body,
		CreatedAt:  env.OccurredAt,
	}, nil
}
