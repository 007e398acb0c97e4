package registration

import (
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

type Service struct {
	store  Store
	events EventReader
	clock  Clock
	loc    *time.Location

	rejectPast bool
	newID      func() string
}

type Option func(*Service)

// WithEventReader puts a cache in front of event reads on the query paths.
// Admission always reads the event through the store under its lock.
func WithEventReader(r EventReader) Option {
	return func(s *Service) {
		if r != nil {
			s.events = r
		}
	}
}

// WithLocation sets the zone that decides which calendar date "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPastDateRejection makes Submit refuse dates before today.
func WithPastDateRejection(on bool) Option {
	return func(s *Service) { s.rejectPast = on }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(store Store, clock Clock, opts ...Option) *Service {
	if store == nil {
		panic("registration.NewService: nil store")
	}
	if clock == nil {
		panic("registration.NewService: nil clock")
	}
	s := &Service{
		store:  store,
		events: store,
		clock:  clock,
		loc:    time.UTC,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() domain.Date {
	return domain.Today(s.clock.Now(), s.loc)
}
