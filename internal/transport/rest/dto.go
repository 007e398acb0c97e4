package rest

import (
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// ---- requests ----

type sessionReq struct {
	Date      string `json:"date" validate:"required,civildate"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

type scheduleReq struct {
	Type      string       `json:"type" validate:"required,oneof=range selected"`
	StartDate string       `json:"start_date" validate:"omitempty,civildate"`
	EndDate   string       `json:"end_date" validate:"omitempty,civildate"`
	StartTime string       `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   string       `json:"end_time" validate:"omitempty,hhmm"`
	Sessions  []sessionReq `json:"sessions" validate:"omitempty,max=366,dive"`
}

// toDomain assumes the request passed validation, so dates parse.
func (s scheduleReq) toDomain() domain.Schedule {
	out := domain.Schedule{
		Type:      domain.ScheduleType(s.Type),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
	if s.StartDate != "" {
		out.StartDate, _ = domain.ParseDate(s.StartDate)
	}
	if s.EndDate != "" {
		out.EndDate, _ = domain.ParseDate(s.EndDate)
	}
	for _, ss := range s.Sessions {
		d, _ := domain.ParseDate(ss.Date)
		out.Sessions = append(out.Sessions, domain.Session{Date: d, StartTime: ss.StartTime, EndTime: ss.EndTime})
	}
	return out
}

type createEventReq struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	Location    string      `json:"location" validate:"required,max=200"`
	Quota       int         `json:"quota" validate:"min=1"`
	Schedule    scheduleReq `json:"schedule"`
	Benefits    []string    `json:"benefits" validate:"max=50,dive,max=200"`
}

func (c *createEventReq) normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Location = strings.TrimSpace(c.Location)
}

func (c createEventReq) toInput() event.EventInput {
	return event.EventInput{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Quota:       c.Quota,
		Schedule:    c.Schedule.toDomain(),
		Benefits:    c.Benefits,
	}
}

// updateEventReq is a partial update; absent fields stay as they are.
type updateEventReq struct {
	Title       *string      `json:"title" validate:"omitnil,max=200"`
	Description *string      `json:"description" validate:"omitnil,max=5000"`
	Location    *string      `json:"location" validate:"omitnil,max=200"`
	Quota       *int         `json:"quota"`
	Schedule    *scheduleReq `json:"schedule"`
	Benefits    *[]string    `json:"benefits"`
}

func (u updateEventReq) toPatch() event.EventPatch {
	p := event.EventPatch{
		Title:       u.Title,
		Description: u.Description,
		Location:    u.Location,
		Quota:       u.Quota,
		Benefits:    u.Benefits,
	}
	if u.Schedule != nil {
		s := u.Schedule.toDomain()
		p.Schedule = &s
	}
	return p
}

type registerReq struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Email         string   `json:"email" validate:"required,email,max=254"`
	Phone         string   `json:"phone" validate:"required,max=32"`
	Domisili      string   `json:"domisili" validate:"max=200"`
	Source        string   `json:"source" validate:"max=100"`
	Reason        string   `json:"reason" validate:"max=2000"`
	SelectedDates []string `json:"selected_dates" validate:"required,min=1,max=366,dive,civildate"`
}

func (r *registerReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	for i := range r.SelectedDates {
		r.SelectedDates[i] = strings.TrimSpace(r.SelectedDates[i])
	}
}

func (r registerReq) participant() domain.Participant {
	return domain.Participant{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Domisili: r.Domisili,
		Source:   r.Source,
		Reason:   r.Reason,
	}
}

func (r registerReq) dates() []domain.Date {
	out := make([]domain.Date, 0, len(r.SelectedDates))
	for _, s := range r.SelectedDates {
		d, _ := domain.ParseDate(s)
		out = append(out, d)
	}
	return out
}

// ---- responses ----

type eventResp struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Location         string            `json:"location"`
	Quota            int               `json:"quota"`
	Schedule         domain.Schedule   `json:"schedule"`
	ScheduleSummary  string            `json:"schedule_summary"`
	Benefits         []string          `json:"benefits"`
	Phase            domain.EventPhase `json:"phase"`
	DaysUntilStart   *int              `json:"days_until_start,omitempty"`
	TotalCapacity    int               `json:"total_capacity"`
	ParticipantCount int               `json:"participant_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func toEventResp(e *domain.Event, participants int, today domain.Date) eventResp {
	out := eventResp{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Location:         e.Location,
		Quota:            e.Quota,
		Schedule:         e.Schedule,
		ScheduleSummary:  e.Schedule.Summary(),
		Benefits:         e.Benefits,
		Phase:            e.Phase(today),
		TotalCapacity:    e.TotalCapacity(),
		ParticipantCount: participants,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if out.Benefits == nil {
		out.Benefits = []string{}
	}
	if days, ok := e.DaysUntilStart(today); ok {
		out.DaysUntilStart = &days
	}
	return out
}

type availableDateResp struct {
	Date       string              `json:"date"`
	Quota      int                 `json:"quota"`
	Booked     int                 `json:"booked"`
	Remaining  int                 `json:"remaining"`
	Full       bool                `json:"full"`
	Past       bool                `json:"past"`
	DayStatus  domain.DayStatus    `json:"day_status"`
	FillLevel  domain.FillLevel    `json:"fill_level"`
	Percentage float64             `json:"percentage"`
	Session    *domain.SessionInfo `json:"session,omitempty"`
}

func toAvailability(dates []domain.AvailableDate) []availableDateResp {
	out := make([]availableDateResp, 0, len(dates))
	for _, d := range dates {
		out = append(out, availableDateResp{
			Date:       d.Date.String(),
			Quota:      d.Quota,
			Booked:     d.Booked,
			Remaining:  d.Remaining,
			Full:       d.Full,
			Past:       d.Past,
			DayStatus:  d.DayStatus,
			FillLevel:  d.FillLevel,
			Percentage: d.Percentage,
			Session:    d.Session,
		})
	}
	return out
}

type registrationResp struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Domisili      string    `json:"domisili"`
	Source        string    `json:"source,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	SelectedDates []string  `json:"selected_dates"`
	RegisteredAt  time.Time `json:"registered_at"`
}

func toRegistrationResp(r *domain.Registration) registrationResp {
	dates := make([]string, 0, len(r.SelectedDates))
	for _, d := range r.SelectedDates {
		dates = append(dates, d.String())
	}
	return registrationResp{
		ID:            r.ID,
		EventID:       r.EventID,
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		Domisili:      r.Domisili,
		Source:        r.Source,
		Reason:        r.Reason,
		SelectedDates: dates,
		RegisteredAt:  r.RegisteredAt,
	}
}

func toRegistrations(regs []*domain.Registration) []registrationResp {
	out := make([]registrationResp, 0, len(regs))
	for _, r := range regs {
		out = append(out, toRegistrationResp(r))
	}
	return out
}

type statsResp struct {
	EventID           string              `json:"event_id"`
	TotalParticipants int                 `json:"total_participants"`
	BookedSlots       int                 `json:"booked_slots"`
	TotalCapacity     int                 `json:"total_capacity"`
	Percentage        float64             `json:"percentage"`
	Phase             domain.EventPhase   `json:"phase"`
	DaysUntilStart    *int                `json:"days_until_start,omitempty"`
	Dates             []availableDateResp `json:"dates"`
}

func toStatsResp(st domain.EventStats) statsResp {
	return statsResp{
		EventID:           st.EventID,
		TotalParticipants: st.TotalParticipants,
		BookedSlots:       st.BookedSlots,
		TotalCapacity:     st.TotalCapacity,
		Percentage:        st.Percentage,
		Phase:             st.Phase,
		DaysUntilStart:    st.DaysUntilStart,
		Dates:             toAvailability(st.Dates),
	}
}

type rosterEntryResp struct {
	No       int    `json:"no"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Domisili string `json:"domisili"`
}

type rosterSectionResp struct {
	Date         string              `json:"date"`
	Session      *domain.SessionInfo `json:"session,omitempty"`
	Participants []rosterEntryResp   `json:"participants"`
	Empty        bool                `json:"empty"`
}

func toRoster(sections []domain.RosterSection) []rosterSectionResp {
	out := make([]rosterSectionResp, 0, len(sections))
	for _, s := range sections {
		sec := rosterSectionResp{
			Date:         s.Date.String(),
			Session:      s.Session,
			Participants: make([]rosterEntryResp, 0, len(s.Entries)),
			Empty:        s.Empty,
		}
		for _, e := range s.Entries {
			sec.Participants = append(sec.Participants, rosterEntryResp{
				No: e.Index, Name: e.Name, Email: e.Email, Phone: e.Phone, Domisili: e.Domisili,
			})
		}
		out = append(out, sec)
	}
	return out
}
