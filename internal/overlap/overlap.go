// Package overlap holds the free/busy arithmetic shared by every availability
// view: booking checks, customer-facing free slots and the admin overview.
package overlap

import (
	"sort"

	"studiobook/internal/models"
)

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints do not overlap.
func Overlaps(a, b models.Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// IsFreeDuring reports whether no busy interval overlaps candidate.
func IsFreeDuring(candidate models.Interval, busy []models.Interval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return false
		}
	}
	return true
}

// FreeSubintervals returns available minus the union of busy, sorted by start.
// The result never contains overlapping or zero-length intervals.
func FreeSubintervals(available, busy []models.Interval) []models.Interval {
	pieces := Merge(available)
	if len(pieces) == 0 {
		return nil
	}

	for _, b := range busy {
		if !b.Valid() {
			continue
		}
		var next []models.Interval
		for _, p := range pieces {
			if !Overlaps(p, b) {
				next = append(next, p)
				continue
			}
			if p.Start.Before(b.Start) {
				next = append(next, models.Interval{Start: p.Start, End: b.Start})
			}
			if b.End.Before(p.End) {
				next = append(next, models.Interval{Start: b.End, End: p.End})
			}
		}
		pieces = next
		if len(pieces) == 0 {
			return nil
		}
	}

	return pieces
}

// Merge sorts intervals and joins the ones that overlap or touch.
// Invalid intervals are dropped.
func Merge(intervals []models.Interval) []models.Interval {
	sorted := make([]models.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Valid() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Clip restricts intervals to window, dropping the ones outside it.
func Clip(intervals []models.Interval, window models.Interval) []models.Interval {
	var out []models.Interval
	for _, iv := range intervals {
		if !Overlaps(iv, window) {
			continue
		}
		if iv.Start.Before(window.Start) {
			iv.Start = window.Start
		}
		if iv.End.After(window.End) {
			iv.End = window.End
		}
		out = append(out, iv)
	}
	return out
}
