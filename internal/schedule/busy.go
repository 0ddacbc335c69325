package schedule

import (
	"fmt"
	"time"

	"studiobook/internal/models"

	"github.com/rs/zerolog"
)

// ResolveLeave returns the absolute range of a leave period.
func ResolveLeave(l models.LeavePeriod) (models.Interval, error) {
	iv := models.Interval{Start: l.Start, End: l.End}
	if !iv.Valid() {
		return models.Interval{}, fmt.Errorf("leave %s: %w", l.ID, ErrInvalidInterval)
	}
	return iv, nil
}

// IsFullDayLeave reports whether a leave is a vacation spanning whole operating
// days: both ends at wall-clock 05:00, the end on a later date.
//
// TODO: leave spanning a DST change is 23h or 25h longer per switch; confirm
// with the admin panel that wall-clock 05:00 on both ends is still the rule.
func IsFullDayLeave(l models.LeavePeriod, loc *time.Location) bool {
	s := l.Start.In(loc)
	e := l.End.In(loc)
	if s.Hour() != leaveBoundaryHour || s.Minute() != 0 {
		return false
	}
	if e.Hour() != leaveBoundaryHour || e.Minute() != 0 {
		return false
	}
	sy, sm, sd := s.Date()
	ey, em, ed := e.Date()
	return time.Date(ey, em, ed, 0, 0, 0, 0, loc).After(time.Date(sy, sm, sd, 0, 0, 0, 0, loc))
}

// BusyIntervals merges active bookings and approved leave into one busy set.
// Malformed records are skipped with a warning.
func (r *Resolver) BusyIntervals(bookings []models.Booking, leave []models.LeavePeriod) []models.Interval {
	busy := make([]models.Interval, 0, len(bookings)+len(leave))

	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive() {
			continue
		}
		iv := b.Interval()
		if !iv.Valid() {
			r.skip("booking", ErrInvalidInterval, func(e *zerolog.Event) *zerolog.Event {
				return e.Str("booking_id", b.ID).Time("start", b.Start).Time("end", b.End)
			})
			continue
		}
		busy = append(busy, iv)
	}

	for i := range leave {
		l := leave[i]
		if !l.IsApproved() {
			continue
		}
		iv, err := ResolveLeave(l)
		if err != nil {
			r.skip("leave", err, func(e *zerolog.Event) *zerolog.Event {
				return e.Str("leave_id", l.ID).Str("engineer_id", l.ResourceID)
			})
			continue
		}
		busy = append(busy, iv)
	}

	return busy
}
