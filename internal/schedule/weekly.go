package schedule

import (
	"fmt"
	"sort"
	"time"

	"studiobook/internal/models"

	"github.com/rs/zerolog"
)

// ResolveWeeklySlot anchors a weekly slot to the week starting at weekStart.
//
// The slot lands on the literal date of its day code. When the end clock is not
// after the start clock the slot crosses midnight and ends on the following day.
// Slots that start before 04:00 are shifted one day forward so that they render
// under the column of their day code (see DayBucketOf). A slot lying inside a
// spring-forward gap resolves to an empty interval.
func ResolveWeeklySlot(slot models.WeeklyAvailability, weekStart time.Time, loc *time.Location) (models.Interval, error) {
	day, err := models.ParseDayCode(slot.DayOfWeek)
	if err != nil {
		return models.Interval{}, fmt.Errorf("%w: %v", ErrInvalidDay, err)
	}
	sh, sm, err := ParseClock(slot.StartTime)
	if err != nil {
		return models.Interval{}, fmt.Errorf("start_time: %w", err)
	}
	eh, em, err := ParseClock(slot.EndTime)
	if err != nil {
		return models.Interval{}, fmt.Errorf("end_time: %w", err)
	}

	y, m, d := weekStart.In(loc).Date()
	d += day.Offset()
	if sh < preDawnHour {
		d++
	}

	endDay := d
	if eh*60+em <= sh*60+sm {
		endDay++
	}
	start := time.Date(y, m, d, sh, sm, 0, 0, loc)
	end := time.Date(y, m, endDay, eh, em, 0, 0, loc)
	if end.Before(start) {
		start = end
	}
	return models.Interval{Start: start, End: end}, nil
}

// Resolver turns upstream records into absolute intervals, skipping malformed
// records instead of failing the whole computation.
type Resolver struct {
	loc    *time.Location
	logger *zerolog.Logger
	onSkip func(kind string)
}

// NewResolver creates a resolver working in the studio location.
func NewResolver(loc *time.Location, logger *zerolog.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{loc: loc, logger: logger}
}

// OnSkip registers a callback invoked for every skipped record.
func (r *Resolver) OnSkip(fn func(kind string)) *Resolver {
	r.onSkip = fn
	return r
}

// Location returns the studio location.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// ResolveRange resolves every slot for every week touching rng and returns the
// intervals overlapping rng, sorted by start.
func (r *Resolver) ResolveRange(slots []models.WeeklyAvailability, rng models.DateRange) []models.Interval {
	if !rng.End.After(rng.Start) {
		return nil
	}

	// Sunday night slots of the previous week can spill into the range.
	first := WeekStart(rng.Start, r.loc).AddDate(0, 0, -7)
	window := rng.Interval()

	var out []models.Interval
	for _, slot := range slots {
		if _, err := ResolveWeeklySlot(slot, first, r.loc); err != nil {
			r.skip("weekly_availability", err, func(e *zerolog.Event) *zerolog.Event {
				return e.Str("slot_id", slot.ID).
					Str("engineer_id", slot.ResourceID).
					Str("day", slot.DayOfWeek).
					Str("start", slot.StartTime).
					Str("end", slot.EndTime)
			})
			continue
		}

		for ws := first; ws.Before(rng.End); ws = ws.AddDate(0, 0, 7) {
			iv, _ := ResolveWeeklySlot(slot, ws, r.loc)
			if iv.Valid() && iv.Start.Before(window.End) && window.Start.Before(iv.End) {
				out = append(out, iv)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func (r *Resolver) skip(kind string, err error, fields func(*zerolog.Event) *zerolog.Event) {
	fields(r.logger.Warn().Err(err).Str("kind", kind)).Msg("skipping malformed record")
	if r.onSkip != nil {
		r.onSkip(kind)
	}
}
