package datasource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studiobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu       sync.Mutex
	skipped  map[string]int
	upstream map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{skipped: map[string]int{}, upstream: map[string]int{}}
}

func (r *countingRecorder) IncSkipped(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[kind]++
}

func (r *countingRecorder) IncUpstreamError(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstream[endpoint]++
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *countingRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := zerolog.New(io.Discard)
	c := NewClient(srv.URL+"/", "k3y", time.Second, &logger)
	rec := newCountingRecorder()
	c.UseRecorder(rec)
	return c, rec
}

var testRange = models.DateRange{
	Start: time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 1, 12, 5, 0, 0, 0, time.UTC),
}

func TestFetchWeeklyAvailability(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/engineers/e%201/availability", r.URL.EscapedPath())
		assert.Equal(t, "k3y", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`[
			{"id":"1","day_of_week":"mon","start_time":"14:00","end_time":"18:00"},
			{"id":"2","day_of_week":"tue","start_time":14,"end_time":"18:00"},
			{"id":"3","engineer_id":"other","day_of_week":"sun","start_time":"22:00","end_time":"02:00"}
		]`))
	})

	got, err := c.FetchWeeklyAvailability(context.Background(), "e 1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e 1", got[0].ResourceID)
	assert.Equal(t, "other", got[1].ResourceID)
	assert.Equal(t, 1, rec.skipped["weekly_availability"])
}

func TestFetchApprovedLeave(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/engineers/7/holidays", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "APPROVED", q.Get("state"))
		assert.Equal(t, "2026-01-05T05:00:00Z", q.Get("from"))
		assert.Equal(t, "2026-01-12T05:00:00Z", q.Get("to"))
		_, _ = w.Write([]byte(`{"items":[
			{"id":"h1","start":"2026-01-06T05:00:00Z","end":"2026-01-08T05:00:00Z","state":"APPROVED"},
			{"id":"h2","start":"2026-01-09T05:00:00Z","end":"2026-01-10T05:00:00Z","state":"PENDING"},
			{"id":"h3","start":"not a time","end":"2026-01-10T05:00:00Z","state":"APPROVED"},
			{"id":"h4","state":"APPROVED"}
		]}`))
	})

	got, err := c.FetchApprovedLeave(context.Background(), "7", testRange)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "h1", got[0].ID)
	assert.Equal(t, "7", got[0].ResourceID)
	assert.Equal(t, 2, rec.skipped["leave"])
}

func TestFetchBookings(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"id":"b1","studio_id":"a","start":"2026-01-05T22:00:00Z","end":"2026-01-06T02:00:00Z","status":"confirmed"}]`))
	})
	ctx := context.Background()

	got, err := c.FetchBookings(ctx, models.BookingFilter{ResourceID: "7"}, testRange)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4*time.Hour, got[0].Interval().Duration())

	_, err = c.FetchBookings(ctx, models.BookingFilter{StudioID: "a"}, testRange)
	require.NoError(t, err)

	_, err = c.FetchBookings(ctx, models.BookingFilter{}, testRange)
	assert.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/v1/engineers/7/bookings", "/api/v1/studios/a/bookings"}, paths)
}

func TestFetch_StatusError(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.FetchWeeklyAvailability(context.Background(), "7")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "availability", se.Endpoint)
	assert.Equal(t, 1, rec.upstream["availability"])
}

func TestFetch_GarbageBodyIsAnError(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.FetchBookings(context.Background(), models.BookingFilter{ResourceID: "7"}, testRange)
	assert.Error(t, err)
	assert.Equal(t, 1, rec.upstream["bookings"])
}

func TestFetch_EmptyListIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	got, err := c.FetchBookings(context.Background(), models.BookingFilter{ResourceID: "7"}, testRange)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestRateLimitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	c.UseRateLimit(0.001, 1)

	_, err := c.FetchWeeklyAvailability(context.Background(), "7")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchWeeklyAvailability(ctx, "7")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.HealthCheck(context.Background()))
	healthy.Store(false)
	var se *StatusError
	assert.ErrorAs(t, c.HealthCheck(context.Background()), &se)
}
