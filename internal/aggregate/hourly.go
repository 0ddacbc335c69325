// Package aggregate combines per-engineer free/busy results into cross-engineer
// views: the hourly overview and the merged daily free-slot list.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiobook/internal/models"
	"studiobook/internal/overlap"
	"studiobook/internal/schedule"

	"golang.org/x/sync/errgroup"
)

var (
	ErrRangeTooLarge = errors.New("date range exceeds the allowed horizon")
	ErrInvalidRange  = errors.New("date range end must be after start")
)

const (
	DefaultMaxDays     = 62
	DefaultConcurrency = 4
)

// Options bounds aggregation work.
type Options struct {
	// MaxDays is a hard cap on the range length.
	MaxDays int
	// Concurrency limits how many engineers are processed at once.
	Concurrency int
}

// Aggregator computes cross-engineer availability.
type Aggregator struct {
	resolver *schedule.Resolver
	opts     Options
}

// New creates an aggregator.
func New(resolver *schedule.Resolver, opts Options) *Aggregator {
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultMaxDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Aggregator{resolver: resolver, opts: opts}
}

// CheckRange validates a range against the hard cap.
func (a *Aggregator) CheckRange(rng models.DateRange) error {
	if !rng.End.After(rng.Start) {
		return ErrInvalidRange
	}
	if days := rng.Days(); days > a.opts.MaxDays {
		return fmt.Errorf("%w: %d days, max %d", ErrRangeTooLarge, days, a.opts.MaxDays)
	}
	return nil
}

// HourlyAvailability returns, per hour key ("2006-01-02 15:00"), the engineers
// free for that whole hour. Engineer lists keep the order of snapshots.
func (a *Aggregator) HourlyAvailability(ctx context.Context, snapshots []ResourceSnapshot, rng models.DateRange) (map[string][]string, error) {
	if err := a.CheckRange(rng); err != nil {
		return nil, err
	}

	results := make([][]string, len(snapshots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i := range snapshots {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.freeHours(&snapshots[i], rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for i, keys := range results {
		id := snapshots[i].Resource.ID
		for _, k := range keys {
			out[k] = append(out[k], id)
		}
	}
	return out, nil
}

func (a *Aggregator) freeHours(snap *ResourceSnapshot, rng models.DateRange) []string {
	loc := a.resolver.Location()
	available := Declared(a.resolver, snap, rng)
	busy := Busy(a.resolver, snap)
	window := rng.Interval()

	seen := make(map[string]struct{})
	var keys []string
	for _, iv := range available {
		for s := firstHourAtOrAfter(iv.Start, loc); !s.Add(time.Hour).After(iv.End); s = s.Add(time.Hour) {
			slot := models.Interval{Start: s, End: s.Add(time.Hour)}
			if !window.Covers(slot) {
				continue
			}
			if !overlap.IsFreeDuring(slot, busy) {
				continue
			}
			key := s.In(loc).Format(models.HourKeyFormat)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

func firstHourAtOrAfter(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	h := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), 0, 0, 0, loc)
	if h.Before(t) {
		h = h.Add(time.Hour)
	}
	return h
}
