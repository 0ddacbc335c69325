package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchResources reloads resources.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop.
func WatchResources(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*ResourcesConfig)) error {
	if path == "" {
		path = "configs/resources.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg, err := LoadResourcesConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				cfg, err := LoadResourcesConfig(path)
				if err != nil {
					// Keep serving the last good config.
					logger.Warn().Err(err).Str("path", path).Msg("resources reload failed")
					continue
				}
				logger.Info().Str("config", cfg.String()).Msg("resources reloaded")
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
