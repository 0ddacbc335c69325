package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveComputation("overview", "ok", 20*time.Millisecond)
	m.ObserveComputation("overview", "ok", 10*time.Millisecond)
	m.ObserveComputation("overview", "upstream_error", time.Millisecond)
	m.IncSkipped("booking")
	m.IncUpstreamError("bookings")
	m.IncHTTP("/api/v1/overview", "POST", "200")
	m.IncRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Computations.WithLabelValues("overview", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Computations.WithLabelValues("overview", "upstream_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedRecords.WithLabelValues("booking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("bookings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/overview", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
