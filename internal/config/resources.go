package config

import (
	"fmt"
	"os"
	"sync"

	"studiobook/internal/models"

	"gopkg.in/yaml.v3"
)

// StudioConfig is a bookable room.
type StudioConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	IsActive bool   `yaml:"is_active"`
}

// ResourcesConfig is the root configuration for resources.yaml.
type ResourcesConfig struct {
	Engineers []models.Resource `yaml:"engineers"`
	Studios   []StudioConfig    `yaml:"studios"`
}

// LoadResourcesConfig loads and validates the engineer and studio list.
func LoadResourcesConfig(path string) (*ResourcesConfig, error) {
	if path == "" {
		path = "configs/resources.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources config: %w", err)
	}

	var cfg ResourcesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse resources config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate resources config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ResourcesConfig) Validate() error {
	if len(c.Engineers) == 0 {
		return fmt.Errorf("no engineers defined")
	}

	ids := make(map[string]bool)
	for i, e := range c.Engineers {
		if e.ID == "" {
			return fmt.Errorf("engineer[%d]: id is required", i)
		}
		if ids[e.ID] {
			return fmt.Errorf("engineer[%d]: duplicate id '%s'", i, e.ID)
		}
		ids[e.ID] = true
		if e.Name == "" {
			return fmt.Errorf("engineer[%d]: name is required", i)
		}
	}

	studios := make(map[string]bool)
	for i, s := range c.Studios {
		if s.ID == "" {
			return fmt.Errorf("studio[%d]: id is required", i)
		}
		if studios[s.ID] {
			return fmt.Errorf("studio[%d]: duplicate id '%s'", i, s.ID)
		}
		studios[s.ID] = true
	}
	return nil
}

// String returns a summary of the configuration.
func (c *ResourcesConfig) String() string {
	active := 0
	for _, e := range c.Engineers {
		if e.Active {
			active++
		}
	}
	return fmt.Sprintf("ResourcesConfig: %d engineers (%d active), %d studios",
		len(c.Engineers), active, len(c.Studios))
}

// Directory is a concurrency-safe view of the latest resources config.
type Directory struct {
	mu        sync.RWMutex
	engineers []models.Resource
	byID      map[string]models.Resource
	studios   map[string]StudioConfig
}

// NewDirectory creates a directory populated from cfg (which may be nil).
func NewDirectory(cfg *ResourcesConfig) *Directory {
	d := &Directory{}
	d.Update(cfg)
	return d
}

// Update replaces the directory contents. It is safe to pass as a watch callback.
func (d *Directory) Update(cfg *ResourcesConfig) {
	engineers := []models.Resource{}
	byID := make(map[string]models.Resource)
	studios := make(map[string]StudioConfig)
	if cfg != nil {
		engineers = append(engineers, cfg.Engineers...)
		for _, e := range cfg.Engineers {
			byID[e.ID] = e
		}
		for _, s := range cfg.Studios {
			studios[s.ID] = s
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.engineers = engineers
	d.byID = byID
	d.studios = studios
}

// Lookup returns an engineer by ID.
func (d *Directory) Lookup(id string) (models.Resource, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byID[id]
	return r, ok
}

// Active returns active engineers in configuration order.
func (d *Directory) Active() []models.Resource {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]models.Resource, 0, len(d.engineers))
	for _, e := range d.engineers {
		if e.Active {
			result = append(result, e)
		}
	}
	return result
}

// HasStudio reports whether an active studio is configured.
func (d *Directory) HasStudio(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.studios[id]
	return ok && s.IsActive
}
