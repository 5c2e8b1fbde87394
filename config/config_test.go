package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingExplicitPathIsError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadParsesKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relq_conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"debug": true, "color_scheme": {"error": "red"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "red", cfg.ColorScheme["error"])
}

func TestMergeOverlaysColorScheme(t *testing.T) {
	base := Default()
	base.ColorScheme["error"] = "red"

	override := Default()
	override.Debug = true
	override.ColorScheme["warning"] = "yellow"

	base.Merge(override)
	assert.True(t, base.Debug)
	assert.Equal(t, "red", base.ColorScheme["error"])
	assert.Equal(t, "yellow", base.ColorScheme["warning"])
}

func TestEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.ColorScheme)
}
