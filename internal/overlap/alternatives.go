package overlap

import (
	"time"

	"studiobook/internal/models"
	"studiobook/internal/schedule"
)

// DefaultHorizonDays bounds the forward scan for alternative slots.
const DefaultHorizonDays = 14

// AlternativeOptions tunes FindAlternatives.
type AlternativeOptions struct {
	HorizonDays int
	// NotBefore drops candidates starting earlier (usually "now").
	NotBefore time.Time
	// Limit caps the number of proposals; zero means no cap.
	Limit    int
	Location *time.Location
}

// FindAlternatives proposes intervals of the requested duration that are free,
// scanning day by day from the requested operating day up to HorizonDays ahead.
//
// available must already hold the resource's weekly availability resolved over
// the horizon. Proposals are ordered nearest first and never shorter than the
// request. When the requested wall-clock start fits in a free piece it is kept,
// otherwise the piece start is proposed.
func FindAlternatives(requested models.Interval, available, busy []models.Interval, opts AlternativeOptions) []models.Interval {
	if !requested.Valid() {
		return nil
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	duration := requested.Duration()
	wanted := requested.Start.In(loc)
	first := schedule.OperatingDate(requested.Start, loc)

	horizon := models.Interval{
		Start: schedule.OperatingDayBounds(first, loc).Start,
		End:   schedule.OperatingDayBounds(first.AddDate(0, 0, opts.HorizonDays), loc).End,
	}
	free := FreeSubintervals(Clip(available, horizon), busy)

	var out []models.Interval
	for i := 0; i <= opts.HorizonDays; i++ {
		day := first.AddDate(0, 0, i)
		bounds := schedule.OperatingDayBounds(day, loc)

		for _, piece := range free {
			// Pieces are bucketed by their start; a piece running past 05:00
			// keeps its full length.
			if !piece.Start.Before(bounds.End) || !piece.End.After(bounds.Start) {
				continue
			}
			if piece.Start.Before(bounds.Start) {
				piece.Start = bounds.Start
			}
			if !opts.NotBefore.IsZero() && piece.Start.Before(opts.NotBefore) {
				piece.Start = opts.NotBefore
			}
			if piece.Duration() < duration {
				continue
			}

			candidate := models.Interval{Start: piece.Start, End: piece.Start.Add(duration)}
			sameClock := sameClockOn(piece.Start, wanted, loc)
			if sameClock.After(piece.Start) && !sameClock.Add(duration).After(piece.End) {
				candidate = models.Interval{Start: sameClock, End: sameClock.Add(duration)}
			}

			if candidate.Start.Equal(requested.Start) && candidate.End.Equal(requested.End) {
				continue
			}
			out = append(out, candidate)
			if opts.Limit > 0 && len(out) >= opts.Limit {
				return out
			}
		}
	}
	return out
}

// sameClockOn returns the instant with the wall-clock of clock on the calendar
// date of day.
func sameClockOn(day, clock time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}
