package overlap

import (
	"time"

	"studiobook/internal/models"
	"studiobook/internal/schedule"
)

// GroupByDay buckets free intervals by their operating-day column. Every
// column touched by rng is present; columns without slots are Unavailable.
func GroupByDay(resourceID string, free []models.Interval, rng models.DateRange, loc *time.Location) []models.DayAvailability {
	dates := schedule.OperatingDates(rng, loc)
	days := make([]models.DayAvailability, len(dates))
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		key := d.Format(models.DateFormat)
		days[i] = models.DayAvailability{Date: key, Slots: []models.ResourceSlot{}}
		index[key] = i
	}

	for _, iv := range free {
		key := schedule.OperatingDate(iv.Start, loc).Format(models.DateFormat)
		i, ok := index[key]
		if !ok {
			continue
		}
		days[i].Slots = append(days[i].Slots, models.ResourceSlot{ResourceID: resourceID, Interval: iv})
	}

	for i := range days {
		days[i].Unavailable = len(days[i].Slots) == 0
	}
	return days
}
