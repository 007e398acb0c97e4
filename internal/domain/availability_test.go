package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

func rangeEvent(quota int, start, end string) *domain.Event {
	return &domain.Event{
		ID:       "evt-1",
		Title:    "Workshop",
		Location: "Balikpapan",
		Quota:    quota,
		Schedule: domain.RangeSchedule(d(start), d(end), "09:00", "12:00"),
	}
}

func reg(id string, at time.Time, dates ...string) *domain.Registration {
	r := &domain.Registration{
		ID:           id,
		EventID:      "evt-1",
		Name:         "Name " + id,
		Email:        id + "@x.com",
		RegisteredAt: at,
	}
	for _, s := range dates {
		r.SelectedDates = append(r.SelectedDates, d(s))
	}
	return r
}

var t0 = time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

func TestComputeAvailability_Accounting(t *testing.T) {
	ev := rangeEvent(2, "2025-01-01", "2025-01-02")
	regs := []*domain.Registration{
		reg("a", t0, "2025-01-01"),
		reg("b", t0, "2025-01-01"),
	}

	got := domain.ComputeAvailability(ev, regs, d("2024-12-01"))
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, d("2025-01-01"), first.Date)
	assert.Equal(t, 2, first.Quota)
	assert.Equal(t, 2, first.Booked)
	assert.Equal(t, 0, first.Remaining)
	assert.True(t, first.Full)
	assert.Equal(t, domain.FillFull, first.FillLevel)
	assert.Equal(t, float64(100), first.Percentage)

	second := got[1]
	assert.Equal(t, 0, second.Booked)
	assert.Equal(t, 2, second.Remaining)
	assert.False(t, second.Full)
	assert.Equal(t, domain.FillEmpty, second.FillLevel)
	require.NotNil(t, second.Session)
	assert.Equal(t, "09:00", second.Session.StartTime)
}

func TestComputeAvailability_PastAndToday(t *testing.T) {
	ev := rangeEvent(5, "2025-01-01", "2025-01-03")

	got := domain.ComputeAvailability(ev, nil, d("2025-01-02"))
	require.Len(t, got, 3)

	assert.True(t, got[0].Past)
	assert.Equal(t, domain.DayPast, got[0].DayStatus)
	assert.False(t, got[1].Past)
	assert.Equal(t, domain.DayToday, got[1].DayStatus)
	assert.Equal(t, domain.DayUpcoming, got[2].DayStatus)
	// past dates are flagged, not treated as full
	assert.False(t, got[0].Full)
	assert.Equal(t, 5, got[0].Remaining)
}

func TestComputeAvailability_OverbookedIsReportedNotCorrected(t *testing.T) {
	ev := rangeEvent(1, "2025-01-01", "2025-01-01")
	regs := []*domain.Registration{
		reg("a", t0, "2025-01-01"),
		reg("b", t0, "2025-01-01"),
	}

	got := domain.ComputeAvailability(ev, regs, d("2024-12-01"))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Booked)
	assert.Equal(t, 0, got[0].Remaining)
	assert.True(t, got[0].Full)
	assert.Equal(t, float64(100), got[0].Percentage)
}

func TestComputeAvailability_IgnoresForeignAndOffScheduleDates(t *testing.T) {
	ev := rangeEvent(3, "2025-01-01", "2025-01-01")
	other := reg("x", t0, "2025-01-01")
	other.EventID = "evt-2"
	regs := []*domain.Registration{
		other,
		reg("a", t0, "2025-01-01", "2025-01-09"),
	}

	got := domain.ComputeAvailability(ev, regs, d("2024-12-01"))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Booked)
}

func TestComputeAvailability_EmptySchedule(t *testing.T) {
	ev := &domain.Event{ID: "evt-1", Quota: 3, Schedule: domain.SelectedSchedule()}
	assert.Empty(t, domain.ComputeAvailability(ev, nil, d("2025-01-01")))
}

func TestQuotaPercentage(t *testing.T) {
	tests := []struct {
		booked, quota int
		want          float64
	}{
		{0, 4, 0},
		{1, 4, 25},
		{3, 4, 75},
		{4, 4, 100},
		{6, 4, 100},
		{1, 0, 0},
		{-1, 4, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.QuotaPercentage(tt.booked, tt.quota), "%d/%d", tt.booked, tt.quota)
	}
}

func TestFillLevels(t *testing.T) {
	ev := rangeEvent(4, "2025-01-01", "2025-01-05")
	regs := []*domain.Registration{
		reg("a", t0, "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05"),
		reg("b", t0, "2025-01-03", "2025-01-04", "2025-01-05"),
		reg("c", t0, "2025-01-04", "2025-01-05"),
		reg("d", t0, "2025-01-05"),
	}

	got := domain.ComputeAvailability(ev, regs, d("2024-12-01"))
	levels := make([]domain.FillLevel, 0, len(got))
	for _, ad := range got {
		levels = append(levels, ad.FillLevel)
	}
	assert.Equal(t, []domain.FillLevel{
		domain.FillEmpty, domain.FillLow, domain.FillMedium, domain.FillHigh, domain.FillFull,
	}, levels)
}
