package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

// Logger provides structured audit logging for business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// EventCreated logs when an organizer publishes a new event
func (l *Logger) EventCreated(ctx context.Context, e *domain.Event, actorID string) {
	l.log.Info().
		Str("action", "event_created").
		Str("event_id", e.ID).
		Int("quota", e.Quota).
		Str("schedule", e.Schedule.Summary()).
		Str("actor_user_id", actorID).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Event created")
}

func (l *Logger) EventUpdated(ctx context.Context, e *domain.Event, actorID string) {
	l.log.Info().
		Str("action", "event_updated").
		Str("event_id", e.ID).
		Int("quota", e.Quota).
		Str("schedule", e.Schedule.Summary()).
		Str("actor_user_id", actorID).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Event updated")
}

// EventDeleted is a warning because registrations go with it.
func (l *Logger) EventDeleted(ctx context.Context, eventID string, removed int, actorID string) {
	l.log.Warn().
		Str("action", "event_deleted").
		Str("event_id", eventID).
		Int("removed_registrations", removed).
		Str("actor_user_id", actorID).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Event deleted")
}

func (l *Logger) RegistrationCreated(ctx context.Context, r *domain.Registration) {
	dates := make([]string, 0, len(r.SelectedDates))
	for _, d := range r.SelectedDates {
		dates = append(dates, d.String())
	}
	l.log.Info().
		Str("action", "registration_created").
		Str("event_id", r.EventID).
		Str("registration_id", r.ID).
		Str("email", r.Email).
		Strs("dates", dates).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Participant registered")
}

// RegistrationCanceled logs a removal; actorID is empty when the participant canceled.
func (l *Logger) RegistrationCanceled(ctx context.Context, r *domain.Registration, actorID string) {
	l.log.Info().
		Str("action", "registration_canceled").
		Str("event_id", r.EventID).
		Str("registration_id", r.ID).
		Str("email", r.Email).
		Str("actor_user_id", actorID).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Registration canceled")
}
