package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("STUDIOBOOK_TEST_UPSTREAM_KEY", "secret")
	path := writeFile(t, t.TempDir(), "config.yaml", `
upstream:
  base_url: http://admin.local
  api_key: ${STUDIOBOOK_TEST_UPSTREAM_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Upstream.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "Europe/Madrid", cfg.Availability.Timezone)
	assert.Equal(t, 14, cfg.Availability.HorizonDays)
	assert.Equal(t, 62, cfg.Availability.MaxRangeDays)
	assert.Equal(t, 4, cfg.Availability.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing upstream",
			content: "server:\n  address: \"localhost:9000\"\n",
			errMsg:  "upstream.base_url is required",
		},
		{
			name:    "bad timezone",
			content: "upstream:\n  base_url: http://x\navailability:\n  timezone: Mars/Olympus\n",
			errMsg:  "unknown zone",
		},
		{
			name:    "horizon over cap",
			content: "upstream:\n  base_url: http://x\navailability:\n  horizon_days: 90\n  max_range_days: 30\n",
			errMsg:  "cannot exceed",
		},
		{
			name:    "rate limit without redis",
			content: "upstream:\n  base_url: http://x\nrate_limit:\n  enabled: true\n",
			errMsg:  "requires redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

const resourcesYAML = `
engineers:
  - id: ana
    name: Ana
    active: true
  - id: house
    name: House Engineer
    active: true
    always_available: true
  - id: old
    name: Retired
    active: false
studios:
  - id: a
    name: Studio A
    is_active: true
`

func TestLoadResourcesConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resources.yaml", resourcesYAML)

	cfg, err := LoadResourcesConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Engineers, 3)
	assert.True(t, cfg.Engineers[1].AlwaysAvailable)
	assert.Equal(t, "ResourcesConfig: 3 engineers (2 active), 1 studios", cfg.String())
}

func TestResourcesConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "empty", content: "engineers: []\n", errMsg: "no engineers"},
		{name: "missing id", content: "engineers:\n  - name: A\n", errMsg: "id is required"},
		{name: "duplicate", content: "engineers:\n  - {id: a, name: A}\n  - {id: a, name: B}\n", errMsg: "duplicate id"},
		{name: "missing name", content: "engineers:\n  - id: a\n", errMsg: "name is required"},
		{name: "studio id", content: "engineers:\n  - {id: a, name: A}\nstudios:\n  - name: S\n", errMsg: "studio[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "resources.yaml", tt.content)
			_, err := LoadResourcesConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDirectory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resources.yaml", resourcesYAML)
	cfg, err := LoadResourcesConfig(path)
	require.NoError(t, err)

	d := NewDirectory(cfg)

	r, ok := d.Lookup("house")
	require.True(t, ok)
	assert.True(t, r.AlwaysAvailable)

	_, ok = d.Lookup("missing")
	assert.False(t, ok)

	active := d.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "ana", active[0].ID)
	assert.Equal(t, "house", active[1].ID)

	assert.True(t, d.HasStudio("a"))
	assert.False(t, d.HasStudio("b"))

	d.Update(nil)
	assert.Empty(t, d.Active())
}

func TestWatchResources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resources.yaml", resourcesYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *ResourcesConfig, 4)
	err := WatchResources(ctx, path, 10*time.Millisecond, nil, func(cfg *ResourcesConfig) {
		updates <- cfg
	})
	require.NoError(t, err)

	first := <-updates
	assert.Len(t, first.Engineers, 3)

	require.NoError(t, os.WriteFile(path, []byte("engineers:\n  - {id: solo, name: Solo, active: true}\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case cfg := <-updates:
		require.Len(t, cfg.Engineers, 1)
		assert.Equal(t, "solo", cfg.Engineers[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("resources were not reloaded")
	}
}

func TestWatchResources_InvalidInitial(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resources.yaml", "engineers: []\n")
	err := WatchResources(context.Background(), path, time.Second, nil, nil)
	assert.Error(t, err)
}
