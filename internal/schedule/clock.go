package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studiobook/internal/models"
)

var (
	ErrInvalidDay      = errors.New("invalid day code")
	ErrInvalidClock    = errors.New("invalid clock time")
	ErrInvalidInterval = errors.New("interval end must be after start")
)

const (
	// Instants with an hour up to and including rolloverHour belong to the
	// previous day's calendar column.
	rolloverHour = 4
	// Weekly slots starting before preDawnHour are the tail of the previous
	// evening and are moved one day forward.
	preDawnHour = 4

	openingHour = 10
	closingHour = 4 // on the following calendar day

	// Full-day leave runs from 05:00 to 05:00.
	leaveBoundaryHour = 5
)

// ParseClock parses a wall-clock "HH:mm" (seconds are tolerated and ignored).
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := models.DayCodeOf(t.Weekday()).Offset()
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}

// DayBucketOf returns the calendar column an instant is displayed under.
// Hours 00:00-04:59 belong to the previous day.
func DayBucketOf(instant time.Time, loc *time.Location) models.DayCode {
	return models.DayCodeOf(OperatingDate(instant, loc).Weekday())
}

// OperatingDate returns midnight of the calendar column date of an instant.
func OperatingDate(instant time.Time, loc *time.Location) time.Time {
	t := instant.In(loc)
	if t.Hour() <= rolloverHour {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// OperatingDayBounds returns the instants grouped under date's column:
// [date 05:00, date+1 05:00).
func OperatingDayBounds(date time.Time, loc *time.Location) models.Interval {
	y, m, d := date.In(loc).Date()
	return models.Interval{
		Start: time.Date(y, m, d, rolloverHour+1, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, rolloverHour+1, 0, 0, 0, loc),
	}
}

// OperatingWindow returns the studio's working window of a date: 10:00 to 04:00
// of the following day.
func OperatingWindow(date time.Time, loc *time.Location) models.Interval {
	y, m, d := date.In(loc).Date()
	return models.Interval{
		Start: time.Date(y, m, d, openingHour, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, closingHour, 0, 0, 0, loc),
	}
}

// OperatingDates lists the column dates touched by rng, in order.
func OperatingDates(rng models.DateRange, loc *time.Location) []time.Time {
	if !rng.End.After(rng.Start) {
		return nil
	}
	first := OperatingDate(rng.Start, loc)
	last := OperatingDate(rng.End.Add(-time.Nanosecond), loc)

	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
