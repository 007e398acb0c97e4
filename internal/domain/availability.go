package domain

type DayStatus string

const (
	DayPast     DayStatus = "past"
	DayToday    DayStatus = "today"
	DayUpcoming DayStatus = "upcoming"
)

type FillLevel string

const (
	FillEmpty  FillLevel = "empty"
	FillLow    FillLevel = "low"
	FillMedium FillLevel = "medium"
	FillHigh   FillLevel = "high"
	FillFull   FillLevel = "full"
)

type SessionInfo struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailableDate is a derived view of one calendar date. It has no identity
// and is rebuilt from live registrations every time it is needed.
type AvailableDate struct {
	Date       Date
	Quota      int
	Booked     int
	Remaining  int
	Full       bool
	Past       bool
	DayStatus  DayStatus
	FillLevel  FillLevel
	Percentage float64
	Session    *SessionInfo
}

// ComputeAvailability returns one entry per scheduled date, in schedule order.
// Registrations of other events are ignored.
func ComputeAvailability(ev *Event, regs []*Registration, today Date) []AvailableDate {
	dates := ev.Schedule.Dates()
	booked := BookedCounts(ev.ID, regs)

	out := make([]AvailableDate, 0, len(dates))
	for _, sd := range dates {
		n := booked[sd.Date]
		ad := AvailableDate{
			Date:       sd.Date,
			Quota:      ev.Quota,
			Booked:     n,
			Remaining:  max(0, ev.Quota-n),
			Full:       n >= ev.Quota,
			Past:       sd.Date.Before(today),
			DayStatus:  dayStatus(sd.Date, today),
			FillLevel:  fillLevel(n, ev.Quota),
			Percentage: QuotaPercentage(n, ev.Quota),
		}
		if sd.StartTime != "" || sd.EndTime != "" {
			ad.Session = &SessionInfo{StartTime: sd.StartTime, EndTime: sd.EndTime}
		}
		out = append(out, ad)
	}
	return out
}

// BookedCounts counts booked slots per date for one event.
func BookedCounts(eventID string, regs []*Registration) map[Date]int {
	counts := make(map[Date]int)
	for _, r := range regs {
		if r == nil || r.EventID != eventID {
			continue
		}
		for _, d := range UniqueDates(r.SelectedDates) {
			counts[d]++
		}
	}
	return counts
}

// QuotaPercentage is booked/quota as a percentage clamped to [0, 100].
// Only the displayed value is clamped; counts above quota are reported as-is elsewhere.
func QuotaPercentage(booked, quota int) float64 {
	if quota <= 0 || booked <= 0 {
		return 0
	}
	p := float64(booked) / float64(quota) * 100
	if p > 100 {
		return 100
	}
	return p
}

func fillLevel(booked, quota int) FillLevel {
	if booked >= quota {
		return FillFull
	}
	p := QuotaPercentage(booked, quota)
	switch {
	case p >= 75:
		return FillHigh
	case p >= 50:
		return FillMedium
	case p >= 25:
		return FillLow
	default:
		return FillEmpty
	}
}

func dayStatus(d, today Date) DayStatus {
	switch {
	case d.Before(today):
		return DayPast
	case d == today:
		return DayToday
	default:
		return DayUpcoming
	}
}
