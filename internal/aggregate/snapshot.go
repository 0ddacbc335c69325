package aggregate

import (
	"studiobook/internal/models"
	"studiobook/internal/overlap"
	"studiobook/internal/schedule"
)

// ResourceSnapshot is the immutable input of one engineer for one computation.
type ResourceSnapshot struct {
	Resource models.Resource
	Weekly   []models.WeeklyAvailability
	Bookings []models.Booking
	Leave    []models.LeavePeriod
}

// Declared returns the engineer's declared availability over rng, merged.
// Always-available engineers get the studio operating window of every day.
func Declared(r *schedule.Resolver, snap *ResourceSnapshot, rng models.DateRange) []models.Interval {
	if snap.Resource.AlwaysAvailable {
		var windows []models.Interval
		for _, d := range schedule.OperatingDates(rng, r.Location()) {
			windows = append(windows, schedule.OperatingWindow(d, r.Location()))
		}
		return overlap.Merge(windows)
	}
	return overlap.Merge(r.ResolveRange(snap.Weekly, rng))
}

// Busy returns the busy set of the engineer: active bookings and approved
// leave. Leave does not apply to always-available engineers.
func Busy(r *schedule.Resolver, snap *ResourceSnapshot) []models.Interval {
	if snap.Resource.AlwaysAvailable {
		return r.BusyIntervals(snap.Bookings, nil)
	}
	return r.BusyIntervals(snap.Bookings, snap.Leave)
}
