package domain

import (
	"strings"
	"time"
)

// Participant is what a registrant types into the form.
type Participant struct {
	Name     string
	Email    string
	Phone    string
	Domisili string
	Source   string
	Reason   string
}

type Registration struct {
	ID            string
	EventID       string
	Name          string
	Email         string
	Phone         string
	Domisili      string
	Source        string
	Reason        string
	SelectedDates []Date
	RegisteredAt  time.Time
}

// NormalizeEmail is the form used for the (event, email) uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p Participant) Normalize() Participant {
	return Participant{
		Name:     strings.TrimSpace(p.Name),
		Email:    NormalizeEmail(p.Email),
		Phone:    strings.TrimSpace(p.Phone),
		Domisili: strings.TrimSpace(p.Domisili),
		Source:   strings.TrimSpace(p.Source),
		Reason:   strings.TrimSpace(p.Reason),
	}
}

func (p Participant) Validate() error {
	if p.Name == "" {
		return ErrValidationField("name", "name is required")
	}
	if p.Email == "" {
		return ErrValidationField("email", "email is required")
	}
	if at := strings.IndexByte(p.Email, '@'); at <= 0 || at == len(p.Email)-1 {
		return ErrValidationField("email", "email is invalid")
	}
	if p.Phone == "" {
		return ErrValidationField("phone", "phone is required")
	}
	return nil
}

// UniqueDates drops zero and repeated dates, keeping first occurrences in order.
func UniqueDates(dates []Date) []Date {
	out := make([]Date, 0, len(dates))
	seen := make(map[Date]struct{}, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (r *Registration) Attends(d Date) bool {
	for _, sd := range r.SelectedDates {
		if sd == d {
			return true
		}
	}
	return false
}
