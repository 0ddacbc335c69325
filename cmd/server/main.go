package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studiobook/internal/api"
	"studiobook/internal/config"
	"studiobook/internal/datasource"
	"studiobook/internal/metrics"
	"studiobook/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("STUDIOBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	directory := config.NewDirectory(nil)
	err = config.WatchResources(ctx, cfg.Resources.Path, cfg.ResourcesReloadInterval(), &logger, func(rc *config.ResourcesConfig) {
		directory.Update(rc)
	})
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Resources.Path).Msg("failed to load resources")
	}

	client := datasource.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.UpstreamTimeout(), &logger)
	client.UseRateLimit(cfg.Upstream.RatePerSecond, cfg.Upstream.Burst)
	client.UseRecorder(m)

	svc := service.NewAvailabilityService(client, directory, service.Options{
		Location:     cfg.Location(),
		HorizonDays:  cfg.Availability.HorizonDays,
		MaxRangeDays: cfg.Availability.MaxRangeDays,
		Concurrency:  cfg.Availability.Concurrency,
	}, &logger, m)

	var limiter *api.RedisRateLimiter
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		limiter = api.NewRedisRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimitWindow(), "studiobook:rl")
	}

	server := api.NewHTTPServer(api.Config{
		Addr:        cfg.Server.Address,
		APIKey:      cfg.Server.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, svc, directory, limiter, m, &logger)
	server.AddReadyCheck("upstream", client.HealthCheck)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, server.Handler(), &logger)

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api server shutdown error")
		}
	}()

	logger.Info().
		Str("timezone", cfg.Availability.Timezone).
		Int("engineers", len(directory.Active())).
		Msg("studiobook started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("studiobook stopped")
}

// startHealthServer exposes the health endpoints on a port that skips auth and rate limiting.
func startHealthServer(ctx context.Context, port int, apiHandler http.Handler, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", apiHandler)
	mux.Handle("/readyz", apiHandler)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
