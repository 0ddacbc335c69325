package aggregate

import (
	"sort"

	"studiobook/internal/models"
)

// CombineDaily merges several engineers' per-day free slots into one list.
// A date is Unavailable only when every engineer has no slot that day.
func CombineDaily(perResource [][]models.DayAvailability) []models.DayAvailability {
	byDate := make(map[string]*models.DayAvailability)
	var dates []string

	for _, days := range perResource {
		for _, day := range days {
			entry, ok := byDate[day.Date]
			if !ok {
				entry = &models.DayAvailability{Date: day.Date, Slots: []models.ResourceSlot{}}
				byDate[day.Date] = entry
				dates = append(dates, day.Date)
			}
			entry.Slots = append(entry.Slots, day.Slots...)
		}
	}

	sort.Strings(dates)
	out := make([]models.DayAvailability, 0, len(dates))
	for _, d := range dates {
		entry := byDate[d]
		sort.SliceStable(entry.Slots, func(i, j int) bool {
			a, b := entry.Slots[i], entry.Slots[j]
			if !a.Start.Equal(b.Start) {
				return a.Start.Before(b.Start)
			}
			return a.ResourceID < b.ResourceID
		})
		entry.Unavailable = len(entry.Slots) == 0
		out = append(out, *entry)
	}
	return out
}

// Level is a coarse indicator of how many engineers are free.
type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelOf maps an engineer count to a Level: 1 low, 2 medium, 3+ high.
func LevelOf(count int) Level {
	switch {
	case count <= 0:
		return LevelNone
	case count == 1:
		return LevelLow
	case count == 2:
		return LevelMedium
	default:
		return LevelHigh
	}
}
