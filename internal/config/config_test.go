package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".rockup"), cfg.RootDir)
	assert.Equal(t, 5, cfg.Keep)
	assert.True(t, cfg.AutoUpdate)
	assert.Equal(t, "rockide", cfg.Product.Binary)
	assert.FileExists(t, filepath.Join(home, ".rockup", "config.toml"))
}

func TestLoadReadsExisting(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".rockup")
	require.NoError(t, os.MkdirAll(dir, 0755))
	body := `
root_dir = "/opt/rockide"
pinned_version = "v0.3.1"
keep = 2
auto_update = false

[product]
owner = "acme"
repo = "rockide"
binary = "rockide"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/rockide", cfg.RootDir)
	assert.Equal(t, "v0.3.1", cfg.PinnedVersion)
	assert.Equal(t, 2, cfg.Keep)
	assert.False(t, cfg.AutoUpdate)
	assert.True(t, cfg.CheckUpdates, "unset keys keep their defaults")
	assert.Equal(t, "acme", cfg.Product.Owner)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{RootDir: filepath.Join("opt", "rockup"), TimeoutSeconds: 45}
	assert.Equal(t, filepath.Join("opt", "rockup", "state.db"), cfg.StateDBPath())
	assert.Equal(t, filepath.Join("opt", "rockup", "installed.json"), cfg.ManifestPath())
	assert.Equal(t, 45*time.Second, cfg.Timeout())
}
