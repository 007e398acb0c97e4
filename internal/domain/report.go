package domain

import "sort"

// TotalParticipants counts distinct registrations. A participant attending
// three dates counts once here and three times in booked slots.
func TotalParticipants(regs []*Registration) int {
	seen := make(map[string]struct{}, len(regs))
	for _, r := range regs {
		if r == nil {
			continue
		}
		seen[r.ID] = struct{}{}
	}
	return len(seen)
}

// BookedSlots sums the per-date booked counts over the event's scheduled dates.
func BookedSlots(ev *Event, regs []*Registration) int {
	counts := BookedCounts(ev.ID, regs)
	total := 0
	for _, sd := range ev.Schedule.Dates() {
		total += counts[sd.Date]
	}
	return total
}

// ParticipantsOnDate returns the registrations that include d, oldest first.
func ParticipantsOnDate(regs []*Registration, d Date) []*Registration {
	var out []*Registration
	for _, r := range regs {
		if r != nil && r.Attends(d) {
			out = append(out, r)
		}
	}
	SortByRegisteredAt(out)
	return out
}

// SortByRegisteredAt orders oldest first; ties keep their relative order.
func SortByRegisteredAt(regs []*Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
}

type RosterEntry struct {
	Index    int
	Name     string
	Email    string
	Phone    string
	Domisili string
}

// RosterSection lists everyone attending one date. Empty marks a date nobody
// registered for; such sections are kept so the roster has one section per date.
type RosterSection struct {
	Date    Date
	Session *SessionInfo
	Entries []RosterEntry
	Empty   bool
}

func BuildRoster(ev *Event, regs []*Registration) []RosterSection {
	own := make([]*Registration, 0, len(regs))
	for _, r := range regs {
		if r != nil && r.EventID == ev.ID {
			own = append(own, r)
		}
	}

	dates := ev.Schedule.Dates()
	out := make([]RosterSection, 0, len(dates))
	for _, sd := range dates {
		sec := RosterSection{Date: sd.Date}
		if sd.StartTime != "" || sd.EndTime != "" {
			sec.Session = &SessionInfo{StartTime: sd.StartTime, EndTime: sd.EndTime}
		}
		for i, r := range ParticipantsOnDate(own, sd.Date) {
			sec.Entries = append(sec.Entries, RosterEntry{
				Index:    i + 1,
				Name:     r.Name,
				Email:    r.Email,
				Phone:    r.Phone,
				Domisili: r.Domisili,
			})
		}
		sec.Empty = len(sec.Entries) == 0
		out = append(out, sec)
	}
	return out
}

type EventStats struct {
	EventID           string
	TotalParticipants int
	BookedSlots       int
	TotalCapacity     int
	Percentage        float64
	Phase             EventPhase
	DaysUntilStart    *int
	Dates             []AvailableDate
}

func Summarize(ev *Event, regs []*Registration, today Date) EventStats {
	own := make([]*Registration, 0, len(regs))
	for _, r := range regs {
		if r != nil && r.EventID == ev.ID {
			own = append(own, r)
		}
	}

	st := EventStats{
		EventID:           ev.ID,
		TotalParticipants: TotalParticipants(own),
		BookedSlots:       BookedSlots(ev, own),
		TotalCapacity:     ev.TotalCapacity(),
		Phase:             ev.Phase(today),
		Dates:             ComputeAvailability(ev, own, today),
	}
	st.Percentage = QuotaPercentage(st.BookedSlots, st.TotalCapacity)
	if days, ok := ev.DaysUntilStart(today); ok {
		st.DaysUntilStart = &days
	}
	return st
}
