package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiobook/internal/aggregate"
	"studiobook/internal/models"
	"studiobook/internal/overlap"
	"studiobook/internal/schedule"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUpstream means a data source failed; the result is unknown, not empty.
	ErrUpstream        = errors.New("could not determine availability")
	ErrUnknownResource = errors.New("unknown engineer")
	ErrUnknownStudio   = errors.New("unknown studio")
	ErrRangeTooLarge   = aggregate.ErrRangeTooLarge
	ErrInvalidRange    = aggregate.ErrInvalidRange
	ErrInvalidInterval = schedule.ErrInvalidInterval
)

// DataSource provides the raw records the engine works on.
type DataSource interface {
	FetchWeeklyAvailability(ctx context.Context, resourceID string) ([]models.WeeklyAvailability, error)
	FetchApprovedLeave(ctx context.Context, resourceID string, rng models.DateRange) ([]models.LeavePeriod, error)
	FetchBookings(ctx context.Context, filter models.BookingFilter, rng models.DateRange) ([]models.Booking, error)
}

// ResourceDirectory resolves configured engineers and studios.
type ResourceDirectory interface {
	Lookup(id string) (models.Resource, bool)
	Active() []models.Resource
	HasStudio(id string) bool
}

// Recorder receives computation metrics.
type Recorder interface {
	ObserveComputation(operation, outcome string, d time.Duration)
	IncSkipped(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveComputation(string, string, time.Duration) {}
func (nopRecorder) IncSkipped(string)                                {}

// Options configures AvailabilityService.
type Options struct {
	Location          *time.Location
	HorizonDays       int
	MaxRangeDays      int
	Concurrency       int
	AlternativesLimit int
}

// AvailabilityService answers availability questions over fresh upstream data.
// It keeps no state between calls.
type AvailabilityService struct {
	source   DataSource
	dir      ResourceDirectory
	opts     Options
	logger   *zerolog.Logger
	recorder Recorder
	resolver *schedule.Resolver
	agg      *aggregate.Aggregator
}

func NewAvailabilityService(source DataSource, dir ResourceDirectory, opts Options, logger *zerolog.Logger, recorder Recorder) *AvailabilityService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = overlap.DefaultHorizonDays
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = aggregate.DefaultMaxDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = aggregate.DefaultConcurrency
	}
	if opts.AlternativesLimit <= 0 {
		opts.AlternativesLimit = 10
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	resolver := schedule.NewResolver(opts.Location, logger).OnSkip(recorder.IncSkipped)
	return &AvailabilityService{
		source:   source,
		dir:      dir,
		opts:     opts,
		logger:   logger,
		recorder: recorder,
		resolver: resolver,
		agg: aggregate.New(resolver, aggregate.Options{
			MaxDays:     opts.MaxRangeDays,
			Concurrency: opts.Concurrency,
		}),
	}
}

// Location returns the studio time zone.
func (s *AvailabilityService) Location() *time.Location {
	return s.opts.Location
}

// IsSlotFree reports whether the engineer declared the candidate as available
// and has no booking or approved leave overlapping it.
func (s *AvailabilityService) IsSlotFree(ctx context.Context, resourceID string, candidate models.Interval) (free bool, err error) {
	defer s.observe("is_slot_free", time.Now(), &err)

	if !candidate.Valid() {
		return false, ErrInvalidInterval
	}
	res, err := s.resource(resourceID)
	if err != nil {
		return false, err
	}
	if res.AlwaysAvailable {
		return true, nil
	}

	rng := models.DateRange{Start: candidate.Start, End: candidate.End}
	snap, err := s.snapshot(ctx, res, rng)
	if err != nil {
		return false, err
	}

	declared := aggregate.Declared(s.resolver, snap, rng)
	covered := false
	for _, iv := range declared {
		if iv.Covers(candidate) {
			covered = true
			break
		}
	}
	if !covered {
		return false, nil
	}
	return overlap.IsFreeDuring(candidate, aggregate.Busy(s.resolver, snap)), nil
}

// IsStudioFree reports whether no active booking of the studio overlaps the candidate.
func (s *AvailabilityService) IsStudioFree(ctx context.Context, studioID string, candidate models.Interval) (free bool, err error) {
	defer s.observe("is_studio_free", time.Now(), &err)

	if !candidate.Valid() {
		return false, ErrInvalidInterval
	}
	if !s.dir.HasStudio(studioID) {
		return false, fmt.Errorf("%w: %s", ErrUnknownStudio, studioID)
	}

	rng := models.DateRange{Start: candidate.Start, End: candidate.End}
	bookings, err := s.source.FetchBookings(ctx, models.BookingFilter{StudioID: studioID}, rng)
	if err != nil {
		return false, fmt.Errorf("%w: studio %s bookings: %w", ErrUpstream, studioID, err)
	}
	return overlap.IsFreeDuring(candidate, s.resolver.BusyIntervals(bookings, nil)), nil
}

// ListFreeSlots returns the engineer's free intervals grouped by operating day.
func (s *AvailabilityService) ListFreeSlots(ctx context.Context, resourceID string, rng models.DateRange) (days []models.DayAvailability, err error) {
	defer s.observe("list_free_slots", time.Now(), &err)

	if err = s.agg.CheckRange(rng); err != nil {
		return nil, err
	}
	res, err := s.resource(resourceID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, res, rng)
	if err != nil {
		return nil, err
	}
	return s.freeDays(snap, rng), nil
}

// ListFreeSlotsMulti merges the free slots of several engineers per day. An
// empty resourceIDs selects every active engineer.
func (s *AvailabilityService) ListFreeSlotsMulti(ctx context.Context, resourceIDs []string, rng models.DateRange) (days []models.DayAvailability, err error) {
	defer s.observe("list_free_slots_multi", time.Now(), &err)

	if err = s.agg.CheckRange(rng); err != nil {
		return nil, err
	}
	snaps, err := s.snapshots(ctx, resourceIDs, rng)
	if err != nil {
		return nil, err
	}

	perResource := make([][]models.DayAvailability, len(snaps))
	for i := range snaps {
		perResource[i] = s.freeDays(&snaps[i], rng)
	}
	return aggregate.CombineDaily(perResource), nil
}

// ListAlternatives proposes free intervals of the requested duration within the
// horizon, nearest first. Nothing earlier than now is proposed.
func (s *AvailabilityService) ListAlternatives(ctx context.Context, resourceID string, requested models.Interval, now time.Time) (alts []models.Interval, err error) {
	defer s.observe("list_alternatives", time.Now(), &err)

	if !requested.Valid() {
		return nil, ErrInvalidInterval
	}
	res, err := s.resource(resourceID)
	if err != nil {
		return nil, err
	}

	first := schedule.OperatingDate(requested.Start, s.opts.Location)
	rng := models.DateRange{
		Start: schedule.OperatingDayBounds(first, s.opts.Location).Start,
		End:   schedule.OperatingDayBounds(first.AddDate(0, 0, s.opts.HorizonDays), s.opts.Location).End,
	}
	snap, err := s.snapshot(ctx, res, rng)
	if err != nil {
		return nil, err
	}

	alts = overlap.FindAlternatives(requested,
		aggregate.Declared(s.resolver, snap, rng),
		aggregate.Busy(s.resolver, snap),
		overlap.AlternativeOptions{
			HorizonDays: s.opts.HorizonDays,
			NotBefore:   now,
			Limit:       s.opts.AlternativesLimit,
			Location:    s.opts.Location,
		})
	if alts == nil {
		alts = []models.Interval{}
	}
	return alts, nil
}

// Overview returns, per hour key, the engineers free for that whole hour. An
// empty resourceIDs selects every active engineer.
func (s *AvailabilityService) Overview(ctx context.Context, resourceIDs []string, rng models.DateRange) (hours map[string][]string, err error) {
	defer s.observe("overview", time.Now(), &err)

	if err = s.agg.CheckRange(rng); err != nil {
		return nil, err
	}
	snaps, err := s.snapshots(ctx, resourceIDs, rng)
	if err != nil {
		return nil, err
	}
	return s.agg.HourlyAvailability(ctx, snaps, rng)
}

func (s *AvailabilityService) freeDays(snap *aggregate.ResourceSnapshot, rng models.DateRange) []models.DayAvailability {
	declared := overlap.Clip(aggregate.Declared(s.resolver, snap, rng), rng.Interval())
	free := overlap.FreeSubintervals(declared, aggregate.Busy(s.resolver, snap))
	return overlap.GroupByDay(snap.Resource.ID, free, rng, s.opts.Location)
}

func (s *AvailabilityService) resource(id string) (models.Resource, error) {
	res, ok := s.dir.Lookup(id)
	if !ok || !res.Active {
		return models.Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	return res, nil
}

func (s *AvailabilityService) resources(ids []string) ([]models.Resource, error) {
	if len(ids) == 0 {
		return s.dir.Active(), nil
	}
	seen := make(map[string]bool, len(ids))
	result := make([]models.Resource, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		res, err := s.resource(id)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, nil
}

// snapshot fetches everything one engineer's computation needs, exactly once.
func (s *AvailabilityService) snapshot(ctx context.Context, res models.Resource, rng models.DateRange) (*aggregate.ResourceSnapshot, error) {
	snap := &aggregate.ResourceSnapshot{Resource: res}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bookings, err := s.source.FetchBookings(gctx, models.BookingFilter{ResourceID: res.ID}, rng)
		if err != nil {
			return fmt.Errorf("%w: engineer %s bookings: %w", ErrUpstream, res.ID, err)
		}
		snap.Bookings = bookings
		return nil
	})

	if !res.AlwaysAvailable {
		g.Go(func() error {
			weekly, err := s.source.FetchWeeklyAvailability(gctx, res.ID)
			if err != nil {
				return fmt.Errorf("%w: engineer %s availability: %w", ErrUpstream, res.ID, err)
			}
			snap.Weekly = weekly
			return nil
		})
		g.Go(func() error {
			leave, err := s.source.FetchApprovedLeave(gctx, res.ID, rng)
			if err != nil {
				return fmt.Errorf("%w: engineer %s leave: %w", ErrUpstream, res.ID, err)
			}
			snap.Leave = leave
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// snapshots fetches several engineers with bounded parallelism. Any failure
// fails the whole call.
func (s *AvailabilityService) snapshots(ctx context.Context, ids []string, rng models.DateRange) ([]aggregate.ResourceSnapshot, error) {
	resources, err := s.resources(ids)
	if err != nil {
		return nil, err
	}

	snaps := make([]aggregate.ResourceSnapshot, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, res := range resources {
		i, res := i, res
		g.Go(func() error {
			snap, err := s.snapshot(gctx, res, rng)
			if err != nil {
				return err
			}
			snaps[i] = *snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *AvailabilityService) observe(operation string, start time.Time, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		outcome = "invalid"
		switch {
		case errors.Is(err, ErrUpstream):
			outcome = "upstream_error"
			s.logger.Error().Err(err).Str("operation", operation).Msg("availability computation failed")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome = "cancelled"
		}
	}
	s.recorder.ObserveComputation(operation, outcome, time.Since(start))
}
