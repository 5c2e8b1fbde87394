// Package config loads relq's JSON settings file (spec.md §6: default
// path `~/.relq_conf.json`, overridable with `-c`). This is the one
// ambient concern built directly on the standard library's
// encoding/json rather than a pack dependency — justified in
// DESIGN.md, since no example repo in the retrieval pack reaches for a
// third-party JSON library for a plain two-key settings file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultFileName is the config file relq looks for in the user's home
// directory when -c is not given.
const DefaultFileName = ".relq_conf.json"

// Config is relq's small per-thread settings record (spec.md §5:
// "No global mutable state except a small per-thread settings record
// (debug flag, color theme)").
type Config struct {
	Debug       bool              `json:"debug"`
	ColorScheme map[string]string `json:"color_scheme"`
}

// Default returns the zero-value settings relq starts with before any
// config file is applied.
func Default() *Config {
	return &Config{ColorScheme: map[string]string{}}
}

// DefaultPath returns ~/.relq_conf.json, or "" if the home directory
// cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads and merges path into a fresh Config. A missing file at the
// default path is not an error (relq runs with defaults); a missing
// file at an explicitly-given -c path is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath() {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.ColorScheme == nil {
		cfg.ColorScheme = map[string]string{}
	}
	return cfg, nil
}

// Merge layers override's recognized keys onto c in place, matching
// spec.md §6's "color_scheme (object) -> merged into the display color
// map" (debug ends up true if either config sets it; color_scheme
// merges key-by-key so a partial override doesn't clobber the rest of
// the palette).
func (c *Config) Merge(override *Config) {
	if override == nil {
		return
	}
	c.Debug = c.Debug || override.Debug
	for k, v := range override.ColorScheme {
		c.ColorScheme[k] = v
	}
}
