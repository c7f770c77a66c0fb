// Package config loads covergrid's TOML configuration. A missing file is not
// an error; defaults apply and flags may override individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk configuration shape.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Search  SearchConfig  `toml:"search"`
	Export  ExportConfig  `toml:"export"`
}

type CatalogConfig struct {
	BaseURL string `toml:"base_url"`
	Kind    string `toml:"kind"`
}

type SearchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
	MinChars   int `toml:"min_chars"`
}

type ExportConfig struct {
	Directory string `toml:"directory"`
	CellSize  int    `toml:"cell_size"`
	Scale     int    `toml:"scale"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	exportDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		exportDir = filepath.Join(home, "covergrid")
	}
	return Config{
		Catalog: CatalogConfig{
			BaseURL: "http://localhost:8080",
			Kind:    "movies",
		},
		Search: SearchConfig{
			DebounceMS: 250,
			MinChars:   2,
		},
		Export: ExportConfig{
			Directory: exportDir,
			CellSize:  300,
			Scale:     2,
		},
	}
}

// DefaultPath is the platform config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "covergrid", "config.toml")
}

// Load reads the file at path, filling unset fields from Default. A missing
// file (or empty path) yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return normalize(cfg), nil
}

// Debounce converts the configured interval into a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

func normalize(cfg Config) Config {
	defaults := Default()
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = defaults.Catalog.BaseURL
	}
	if cfg.Catalog.Kind == "" {
		cfg.Catalog.Kind = defaults.Catalog.Kind
	}
	if cfg.Search.DebounceMS <= 0 {
		cfg.Search.DebounceMS = defaults.Search.DebounceMS
	}
	if cfg.Search.MinChars <= 0 {
		cfg.Search.MinChars = defaults.Search.MinChars
	}
	if cfg.Export.Directory == "" {
		cfg.Export.Directory = defaults.Export.Directory
	}
	if cfg.Export.CellSize <= 0 {
		cfg.Export.CellSize = defaults.Export.CellSize
	}
	if cfg.Export.Scale <= 0 {
		cfg.Export.Scale = defaults.Export.Scale
	}
	return cfg
}
