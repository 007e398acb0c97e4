package domain

import (
	"fmt"
	"strconv"
	"time"
)

type ScheduleType string

const (
	ScheduleRange    ScheduleType = "range"
	ScheduleSelected ScheduleType = "selected"
)

// MaxRangeDays bounds how many calendar dates a range schedule may span.
const MaxRangeDays = 366

const timeOfDayLayout = "15:04"

type Session struct {
	Date      Date   `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Schedule is either a contiguous date range sharing one daily window (Type=range)
// or an explicit list of sessions with their own windows (Type=selected).
type Schedule struct {
	Type      ScheduleType `json:"type"`
	StartDate Date         `json:"start_date,omitzero"`
	EndDate   Date         `json:"end_date,omitzero"`
	StartTime string       `json:"start_time,omitempty"`
	EndTime   string       `json:"end_time,omitempty"`
	Sessions  []Session    `json:"sessions,omitempty"`
}

// ScheduledDate is one member of an event's calendar-date set.
type ScheduledDate struct {
	Date      Date
	StartTime string
	EndTime   string
}

func RangeSchedule(start, end Date, startTime, endTime string) Schedule {
	return Schedule{Type: ScheduleRange, StartDate: start, EndDate: end, StartTime: startTime, EndTime: endTime}
}

func SelectedSchedule(sessions ...Session) Schedule {
	return Schedule{Type: ScheduleSelected, Sessions: sessions}
}

// Dates expands the schedule into its calendar-date set.
// Range dates are ascending; selected dates keep insertion order with repeats dropped.
// An empty or malformed schedule yields no dates.
func (s Schedule) Dates() []ScheduledDate {
	switch s.Type {
	case ScheduleRange:
		if s.StartDate.IsZero() || s.EndDate.IsZero() || s.StartDate.After(s.EndDate) {
			return nil
		}
		out := make([]ScheduledDate, 0, s.StartDate.DaysUntil(s.EndDate)+1)
		for d := s.StartDate; !d.After(s.EndDate); d = d.AddDays(1) {
			out = append(out, ScheduledDate{Date: d, StartTime: s.StartTime, EndTime: s.EndTime})
		}
		return out
	case ScheduleSelected:
		out := make([]ScheduledDate, 0, len(s.Sessions))
		seen := make(map[Date]struct{}, len(s.Sessions))
		for _, sess := range s.Sessions {
			if sess.Date.IsZero() {
				continue
			}
			if _, dup := seen[sess.Date]; dup {
				continue
			}
			seen[sess.Date] = struct{}{}
			out = append(out, ScheduledDate{Date: sess.Date, StartTime: sess.StartTime, EndTime: sess.EndTime})
		}
		return out
	default:
		return nil
	}
}

func (s Schedule) Lookup(d Date) (ScheduledDate, bool) {
	if s.Type == ScheduleRange {
		if s.StartDate.IsZero() || s.EndDate.IsZero() || d.Before(s.StartDate) || d.After(s.EndDate) {
			return ScheduledDate{}, false
		}
		return ScheduledDate{Date: d, StartTime: s.StartTime, EndTime: s.EndTime}, true
	}
	for _, sd := range s.Dates() {
		if sd.Date == d {
			return sd, true
		}
	}
	return ScheduledDate{}, false
}

func (s Schedule) Contains(d Date) bool {
	_, ok := s.Lookup(d)
	return ok
}

// Bounds returns the earliest and latest scheduled date.
func (s Schedule) Bounds() (first, last Date, ok bool) {
	dates := s.Dates()
	if len(dates) == 0 {
		return Date{}, Date{}, false
	}
	first, last = dates[0].Date, dates[0].Date
	for _, sd := range dates[1:] {
		if sd.Date.Before(first) {
			first = sd.Date
		}
		if sd.Date.After(last) {
			last = sd.Date
		}
	}
	return first, last, true
}

// Summary is the short listing text: "N sessions" for selected schedules,
// otherwise the single date or "start to end".
func (s Schedule) Summary() string {
	dates := s.Dates()
	if len(dates) == 0 {
		return ""
	}
	if s.Type == ScheduleSelected {
		if len(dates) == 1 {
			return "1 session"
		}
		return strconv.Itoa(len(dates)) + " sessions"
	}
	first, last, _ := s.Bounds()
	if first == last {
		return first.String()
	}
	return first.String() + " to " + last.String()
}

func (s Schedule) Validate() error {
	switch s.Type {
	case ScheduleRange:
		if s.StartDate.IsZero() {
			return ErrValidationField("schedule.start_date", "start date is required")
		}
		if s.EndDate.IsZero() {
			return ErrValidationField("schedule.end_date", "end date is required")
		}
		if s.StartDate.After(s.EndDate) {
			return ErrValidationField("schedule.end_date", "end date must not be before start date")
		}
		if s.StartDate.DaysUntil(s.EndDate) >= MaxRangeDays {
			return ErrValidationField("schedule.end_date", fmt.Sprintf("range may span at most %d days", MaxRangeDays))
		}
		return validateWindow("schedule", s.StartTime, s.EndTime)
	case ScheduleSelected:
		if len(s.Sessions) == 0 {
			return ErrValidationField("schedule.sessions", "at least one session is required")
		}
		seen := make(map[Date]struct{}, len(s.Sessions))
		for i, sess := range s.Sessions {
			prefix := fmt.Sprintf("schedule.sessions[%d]", i)
			if sess.Date.IsZero() {
				return ErrValidationField(prefix+".date", "session date is required")
			}
			if _, dup := seen[sess.Date]; dup {
				return ErrValidationMeta("session date appears more than once", map[string]string{
					"field": prefix + ".date",
					"date":  sess.Date.String(),
				})
			}
			seen[sess.Date] = struct{}{}
			if err := validateWindow(prefix, sess.StartTime, sess.EndTime); err != nil {
				return err
			}
		}
		return nil
	case "":
		return ErrValidationField("schedule.type", "schedule type is required")
	default:
		return ErrValidationField("schedule.type", fmt.Sprintf("unknown schedule type %q", s.Type))
	}
}

func validateWindow(prefix, start, end string) error {
	st, err := time.Parse(timeOfDayLayout, start)
	if err != nil {
		return ErrValidationField(prefix+".start_time", "start time must be HH:MM")
	}
	et, err := time.Parse(timeOfDayLayout, end)
	if err != nil {
		return ErrValidationField(prefix+".end_time", "end time must be HH:MM")
	}
	if !st.Before(et) {
		return ErrValidationField(prefix+".end_time", "end time must be after start time")
	}
	return nil
}
