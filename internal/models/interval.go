package models

import "time"

// HourKeyFormat formats the start of an hour slot used as aggregation key.
const HourKeyFormat = "2006-01-02 15:00"

// DateFormat is the calendar date layout used across the API.
const DateFormat = "2006-01-02"

// Interval is an absolute half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Valid reports whether the interval has positive duration.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Covers reports whether other lies entirely inside i.
func (i Interval) Covers(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

func (i Interval) String() string {
	return i.Start.Format(time.RFC3339) + "/" + i.End.Format(time.RFC3339)
}

// DateRange is an absolute range of instants used to bound computations.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Interval returns the range as an Interval.
func (r DateRange) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// Days returns the range length rounded up to whole days.
func (r DateRange) Days() int {
	if !r.End.After(r.Start) {
		return 0
	}
	d := r.End.Sub(r.Start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
