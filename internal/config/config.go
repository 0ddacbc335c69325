package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		Address         string   `yaml:"address"`
		APIKey          string   `yaml:"api_key"`
		ShutdownSeconds int      `yaml:"shutdown_seconds"`
		CORSOrigins     []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Upstream struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
	} `yaml:"upstream"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Enabled       bool `yaml:"enabled"`
		Requests      int  `yaml:"requests"`
		WindowSeconds int  `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Availability struct {
		Timezone     string `yaml:"timezone"`
		HorizonDays  int    `yaml:"horizon_days"`
		MaxRangeDays int    `yaml:"max_range_days"`
		Concurrency  int    `yaml:"concurrency"`
	} `yaml:"availability"`

	Resources struct {
		Path                  string `yaml:"path"`
		ReloadIntervalSeconds int    `yaml:"reload_interval_seconds"`
	} `yaml:"resources"`
}

// Load reads the YAML config, expanding ${ENV_VAR} placeholders, and applies defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		c.Upstream.TimeoutSeconds = 10
	}
	if c.Upstream.RatePerSecond <= 0 {
		c.Upstream.RatePerSecond = 20
	}
	if c.Upstream.Burst <= 0 {
		c.Upstream.Burst = 10
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 120
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8081
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Availability.Timezone == "" {
		c.Availability.Timezone = "Europe/Madrid"
	}
	if c.Availability.HorizonDays <= 0 {
		c.Availability.HorizonDays = 14
	}
	if c.Availability.MaxRangeDays <= 0 {
		c.Availability.MaxRangeDays = 62
	}
	if c.Availability.Concurrency <= 0 {
		c.Availability.Concurrency = 4
	}
	if c.Resources.Path == "" {
		c.Resources.Path = "configs/resources.yaml"
	}
	if c.Resources.ReloadIntervalSeconds <= 0 {
		c.Resources.ReloadIntervalSeconds = 30
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if _, err := time.LoadLocation(c.Availability.Timezone); err != nil {
		return fmt.Errorf("availability.timezone: unknown zone '%s'", c.Availability.Timezone)
	}
	if c.Availability.HorizonDays > c.Availability.MaxRangeDays {
		return fmt.Errorf("availability.horizon_days (%d) cannot exceed max_range_days (%d)",
			c.Availability.HorizonDays, c.Availability.MaxRangeDays)
	}
	if c.RateLimit.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("rate_limit requires redis.address")
	}
	return nil
}

// Location returns the studio time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Availability.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) ResourcesReloadInterval() time.Duration {
	return time.Duration(c.Resources.ReloadIntervalSeconds) * time.Second
}
