package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"studiobook/internal/metrics"
	"studiobook/internal/models"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// AvailabilityService is the engine the API exposes.
type AvailabilityService interface {
	IsSlotFree(ctx context.Context, resourceID string, candidate models.Interval) (bool, error)
	IsStudioFree(ctx context.Context, studioID string, candidate models.Interval) (bool, error)
	ListFreeSlots(ctx context.Context, resourceID string, rng models.DateRange) ([]models.DayAvailability, error)
	ListFreeSlotsMulti(ctx context.Context, resourceIDs []string, rng models.DateRange) ([]models.DayAvailability, error)
	ListAlternatives(ctx context.Context, resourceID string, requested models.Interval, now time.Time) ([]models.Interval, error)
	Overview(ctx context.Context, resourceIDs []string, rng models.DateRange) (map[string][]string, error)
	Location() *time.Location
}

// EngineerDirectory lists configured engineers for display names.
type EngineerDirectory interface {
	Lookup(id string) (models.Resource, bool)
	Active() []models.Resource
}

// CheckFunc is a readiness check.
type CheckFunc func(ctx context.Context) error

// Config configures HTTPServer.
type Config struct {
	Addr        string
	APIKey      string
	CORSOrigins []string
}

// HTTPServer serves the availability API.
type HTTPServer struct {
	cfg     Config
	svc     AvailabilityService
	dir     EngineerDirectory
	limiter *RedisRateLimiter
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc

	server *http.Server
}

// NewHTTPServer builds the router. limiter and m may be nil.
func NewHTTPServer(cfg Config, svc AvailabilityService, dir EngineerDirectory, limiter *RedisRateLimiter, m *metrics.Metrics, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		dir:     dir,
		limiter: limiter,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		checks:  make(map[string]CheckFunc),
	}
	if limiter != nil {
		s.AddReadyCheck("redis", limiter.Ping)
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withAccessLog)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.withAPIKey, s.withRateLimit)
	v1.HandleFunc("/engineers/{id}/free", s.handleEngineerFree).Methods(http.MethodGet)
	v1.HandleFunc("/engineers/{id}/check", s.handleEngineerCheck).Methods(http.MethodPost)
	v1.HandleFunc("/engineers/{id}/alternatives", s.handleEngineerAlternatives).Methods(http.MethodPost)
	v1.HandleFunc("/studios/{id}/check", s.handleStudioCheck).Methods(http.MethodPost)
	v1.HandleFunc("/free", s.handleFree).Methods(http.MethodPost)
	v1.HandleFunc("/overview", s.handleOverview).Methods(http.MethodPost)
	v1.HandleFunc("/overview.xlsx", s.handleOverviewExport).Methods(http.MethodGet)

	if len(s.cfg.CORSOrigins) == 0 {
		return r
	}
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", apiKeyHeader, requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(r)
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// AddReadyCheck registers a readiness check reported by /readyz.
func (s *HTTPServer) AddReadyCheck(name string, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = fn
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(checks))
	for name, fn := range checks {
		if err := fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
