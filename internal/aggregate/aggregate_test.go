package aggregate

import (
	"context"
	"io"
	"testing"
	"time"

	"studiobook/internal/models"
	"studiobook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday.
func at(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

func newTestAggregator(opts Options) *Aggregator {
	logger := zerolog.New(io.Discard)
	return New(schedule.NewResolver(time.UTC, &logger), opts)
}

func monday(id, start, end string) []models.WeeklyAvailability {
	return []models.WeeklyAvailability{{ID: id + "-mon", ResourceID: id, DayOfWeek: "mon", StartTime: start, EndTime: end}}
}

func mondayRange() models.DateRange {
	return models.DateRange{Start: at(5, 0, 0), End: at(6, 0, 0)}
}

func TestHourlyAvailability_CountsFreeEngineers(t *testing.T) {
	agg := newTestAggregator(Options{})
	snaps := []ResourceSnapshot{
		{Resource: models.Resource{ID: "a", Active: true}, Weekly: monday("a", "14:00", "15:00")},
		{Resource: models.Resource{ID: "b", Active: true}, Weekly: monday("b", "14:00", "15:00")},
		{
			Resource: models.Resource{ID: "c", Active: true},
			Weekly:   monday("c", "14:00", "15:00"),
			Bookings: []models.Booking{{ID: "bk1", ResourceID: "c", Start: at(5, 14, 0), End: at(5, 15, 0), Status: models.StatusConfirmed}},
		},
	}

	got, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"2026-01-05 14:00": {"a", "b"}}, got)
}

func TestHourlyAvailability_OnlyWholeHours(t *testing.T) {
	agg := newTestAggregator(Options{})
	snaps := []ResourceSnapshot{
		{Resource: models.Resource{ID: "a", Active: true}, Weekly: monday("a", "10:30", "13:00")},
	}

	got, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "2026-01-05 11:00")
	assert.Contains(t, got, "2026-01-05 12:00")
	assert.NotContains(t, got, "2026-01-05 10:00")
}

func TestHourlyAvailability_LeaveAndCancelledBookings(t *testing.T) {
	agg := newTestAggregator(Options{})
	snaps := []ResourceSnapshot{
		{
			Resource: models.Resource{ID: "a", Active: true},
			Weekly:   monday("a", "14:00", "16:00"),
			Bookings: []models.Booking{{ID: "x", Start: at(5, 14, 0), End: at(5, 15, 0), Status: models.StatusCancelled}},
			Leave:    []models.LeavePeriod{{ID: "l1", ResourceID: "a", Start: at(5, 15, 0), End: at(5, 16, 0), State: models.LeaveApproved}},
		},
		{
			Resource: models.Resource{ID: "b", Active: true},
			Weekly:   monday("b", "14:00", "16:00"),
			Leave:    []models.LeavePeriod{{ID: "l2", ResourceID: "b", Start: at(5, 14, 0), End: at(5, 16, 0), State: models.LeavePending}},
		},
	}

	got, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got["2026-01-05 14:00"])
	assert.Equal(t, []string{"b"}, got["2026-01-05 15:00"])
}

func TestHourlyAvailability_AlwaysAvailable(t *testing.T) {
	agg := newTestAggregator(Options{})
	snaps := []ResourceSnapshot{
		{
			Resource: models.Resource{ID: "house", Active: true, AlwaysAvailable: true},
			Bookings: []models.Booking{{ID: "b1", Start: at(5, 12, 0), End: at(5, 13, 0), Status: models.StatusConfirmed}},
			Leave:    []models.LeavePeriod{{ID: "l1", Start: at(5, 0, 0), End: at(6, 0, 0), State: models.LeaveApproved}},
		},
	}

	got, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
	require.NoError(t, err)
	// 00:00-04:00 of the previous night plus 10:00-24:00, minus the 12:00 booking.
	assert.Len(t, got, 17)
	assert.Contains(t, got, "2026-01-05 03:00")
	assert.NotContains(t, got, "2026-01-05 04:00")
	assert.NotContains(t, got, "2026-01-05 12:00")
}

func TestHourlyAvailability_Deterministic(t *testing.T) {
	agg := newTestAggregator(Options{Concurrency: 2})
	var snaps []ResourceSnapshot
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5", "e6"} {
		snaps = append(snaps, ResourceSnapshot{Resource: models.Resource{ID: id, Active: true}, Weekly: monday(id, "10:00", "02:00")})
	}

	first, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := agg.HourlyAvailability(context.Background(), snaps, mondayRange())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5", "e6"}, first["2026-01-05 22:00"])
}

func TestHourlyAvailability_RangeChecks(t *testing.T) {
	agg := newTestAggregator(Options{MaxDays: 7})

	_, err := agg.HourlyAvailability(context.Background(), nil, models.DateRange{Start: at(5, 0, 0), End: at(13, 0, 0)})
	assert.ErrorIs(t, err, ErrRangeTooLarge)

	_, err = agg.HourlyAvailability(context.Background(), nil, models.DateRange{Start: at(5, 0, 0), End: at(5, 0, 0)})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestHourlyAvailability_Cancelled(t *testing.T) {
	agg := newTestAggregator(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snaps := []ResourceSnapshot{{Resource: models.Resource{ID: "a"}, Weekly: monday("a", "10:00", "12:00")}}
	_, err := agg.HourlyAvailability(ctx, snaps, mondayRange())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombineDaily(t *testing.T) {
	slot := func(id string, day, sh, eh int) models.ResourceSlot {
		return models.ResourceSlot{ResourceID: id, Interval: models.Interval{Start: at(day, sh, 0), End: at(day, eh, 0)}}
	}
	a := []models.DayAvailability{
		{Date: "2026-01-05", Slots: []models.ResourceSlot{slot("a", 5, 16, 18)}},
		{Date: "2026-01-06", Slots: []models.ResourceSlot{}, Unavailable: true},
		{Date: "2026-01-07", Slots: []models.ResourceSlot{}, Unavailable: true},
	}
	b := []models.DayAvailability{
		{Date: "2026-01-05", Slots: []models.ResourceSlot{slot("b", 5, 12, 14)}},
		{Date: "2026-01-06", Slots: []models.ResourceSlot{slot("b", 6, 12, 14)}},
		{Date: "2026-01-07", Slots: []models.ResourceSlot{}, Unavailable: true},
	}

	got := CombineDaily([][]models.DayAvailability{a, b})
	require.Len(t, got, 3)

	assert.Equal(t, "2026-01-05", got[0].Date)
	require.Len(t, got[0].Slots, 2)
	assert.Equal(t, "b", got[0].Slots[0].ResourceID)
	assert.Equal(t, "a", got[0].Slots[1].ResourceID)
	assert.False(t, got[0].Unavailable)

	assert.False(t, got[1].Unavailable)
	assert.True(t, got[2].Unavailable)
	assert.NotNil(t, got[2].Slots)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, LevelNone, LevelOf(0))
	assert.Equal(t, LevelLow, LevelOf(1))
	assert.Equal(t, LevelMedium, LevelOf(2))
	assert.Equal(t, LevelHigh, LevelOf(3))
	assert.Equal(t, LevelHigh, LevelOf(12))
}
