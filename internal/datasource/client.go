// Package datasource reads engineer availability, leave and bookings from the
// studio admin API.
package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studiobook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	endpointAvailability = "availability"
	endpointHolidays     = "holidays"
	endpointBookings     = "bookings"
	endpointHealth       = "health"
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.Endpoint, e.StatusCode)
}

// Recorder receives client metrics.
type Recorder interface {
	IncSkipped(kind string)
	IncUpstreamError(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) IncSkipped(string)       {}
func (nopRecorder) IncUpstreamError(string) {}

// Client is an HTTP client for the admin API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger
	recorder   Recorder
}

// NewClient constructs a client with baseURL and API key. A zero timeout uses 10s.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		recorder:   nopRecorder{},
	}
}

// UseRateLimit throttles outgoing requests to rps with the given burst.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// UseRecorder sets the metrics recorder.
func (c *Client) UseRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// FetchWeeklyAvailability returns the weekly availability records of an engineer.
func (c *Client) FetchWeeklyAvailability(ctx context.Context, resourceID string) ([]models.WeeklyAvailability, error) {
	endpoint := fmt.Sprintf("%s/api/v1/engineers/%s/availability", c.baseURL, url.PathEscape(resourceID))

	raw, err := c.getList(ctx, endpointAvailability, endpoint)
	if err != nil {
		return nil, err
	}

	out := make([]models.WeeklyAvailability, 0, len(raw))
	for i, msg := range raw {
		var rec models.WeeklyAvailability
		if err := json.Unmarshal(msg, &rec); err != nil {
			c.quarantine("weekly_availability", i, msg, err)
			continue
		}
		if rec.ResourceID == "" {
			rec.ResourceID = resourceID
		}
		out = append(out, rec)
	}
	return out, nil
}

// FetchApprovedLeave returns approved leave of an engineer overlapping rng.
func (c *Client) FetchApprovedLeave(ctx context.Context, resourceID string, rng models.DateRange) ([]models.LeavePeriod, error) {
	q := rangeQuery(rng)
	q.Set("state", string(models.LeaveApproved))
	endpoint := fmt.Sprintf("%s/api/v1/engineers/%s/holidays?%s", c.baseURL, url.PathEscape(resourceID), q.Encode())

	raw, err := c.getList(ctx, endpointHolidays, endpoint)
	if err != nil {
		return nil, err
	}

	out := make([]models.LeavePeriod, 0, len(raw))
	for i, msg := range raw {
		var rec models.LeavePeriod
		if err := json.Unmarshal(msg, &rec); err != nil {
			c.quarantine("leave", i, msg, err)
			continue
		}
		if rec.Start.IsZero() || rec.End.IsZero() {
			c.quarantine("leave", i, msg, errors.New("missing start or end"))
			continue
		}
		if !rec.IsApproved() {
			continue
		}
		if rec.ResourceID == "" {
			rec.ResourceID = resourceID
		}
		out = append(out, rec)
	}
	return out, nil
}

// FetchBookings returns the bookings of an engineer or a studio overlapping rng.
func (c *Client) FetchBookings(ctx context.Context, filter models.BookingFilter, rng models.DateRange) ([]models.Booking, error) {
	var endpoint string
	q := rangeQuery(rng).Encode()
	switch {
	case filter.ResourceID != "":
		endpoint = fmt.Sprintf("%s/api/v1/engineers/%s/bookings?%s", c.baseURL, url.PathEscape(filter.ResourceID), q)
	case filter.StudioID != "":
		endpoint = fmt.Sprintf("%s/api/v1/studios/%s/bookings?%s", c.baseURL, url.PathEscape(filter.StudioID), q)
	default:
		return nil, errors.New("booking filter needs an engineer or a studio")
	}

	raw, err := c.getList(ctx, endpointBookings, endpoint)
	if err != nil {
		return nil, err
	}

	out := make([]models.Booking, 0, len(raw))
	for i, msg := range raw {
		var rec models.Booking
		if err := json.Unmarshal(msg, &rec); err != nil {
			c.quarantine("booking", i, msg, err)
			continue
		}
		if rec.Start.IsZero() || rec.End.IsZero() {
			c.quarantine("booking", i, msg, errors.New("missing start or end"))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// HealthCheck pings the admin API.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpointHealth, StatusCode: resp.StatusCode}
	}
	return nil
}

// getList fetches a JSON array, optionally wrapped in {"items": [...]}, and
// returns its records undecoded.
func (c *Client) getList(ctx context.Context, name, endpoint string) ([]json.RawMessage, error) {
	body, err := c.doGet(ctx, name, endpoint)
	if err != nil {
		c.recorder.IncUpstreamError(name)
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			c.recorder.IncUpstreamError(name)
			return nil, fmt.Errorf("%s: decode list: %w", name, err)
		}
		return list, nil
	}

	var wrap struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrap); err != nil {
		c.recorder.IncUpstreamError(name)
		return nil, fmt.Errorf("%s: decode list: %w", name, err)
	}
	return wrap.Items, nil
}

func (c *Client) doGet(ctx context.Context, name, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Endpoint: name, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

func (c *Client) quarantine(kind string, index int, msg json.RawMessage, err error) {
	sample := string(msg)
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn().Err(err).Str("kind", kind).Int("index", index).Str("record", sample).Msg("skipping malformed record")
	c.recorder.IncSkipped(kind)
}

func rangeQuery(rng models.DateRange) url.Values {
	q := url.Values{}
	q.Set("from", rng.Start.UTC().Format(time.RFC3339))
	q.Set("to", rng.End.UTC().Format(time.RFC3339))
	return q
}
