// Package config loads the application configuration: built-in defaults,
// then an optional YAML file, then CADENCE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/diversity"
	"github.com/abhisek/cadence/internal/runstate"
	"github.com/abhisek/cadence/internal/store"
)

// Config is the application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Diversity DiversityConfig `yaml:"diversity"`

	// Tuning is the default tuning for new runs.
	Tuning runstate.Config `yaml:"tuning"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // sqlite file; empty means DefaultDBPath
	URL     string `yaml:"url"`  // redis:// or postgres:// URL
}

// LogConfig controls the slog handler installed by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// CatalogConfig selects the curriculum.
type CatalogConfig struct {
	Path        string `yaml:"path"` // YAML catalog; empty means the built-in one
	FocusModule string `yaml:"focus_module"`
}

// DiversityConfig holds the diversity engine settings.
type DiversityConfig struct {
	HistorySize      int     `yaml:"history_size"`
	AvoidWindow      int     `yaml:"avoid_window"`
	Threshold        float64 `yaml:"threshold"`
	RelaxStep        float64 `yaml:"relax_step"`
	MaxRegenerations int     `yaml:"max_regenerations"`
}

// Engine converts the settings for diversity.NewEngine.
func (d DiversityConfig) Engine() diversity.Config {
	cfg := diversity.DefaultConfig()
	cfg.HistorySize = d.HistorySize
	cfg.AvoidWindow = d.AvoidWindow
	cfg.Threshold = d.Threshold
	cfg.RelaxStep = d.RelaxStep
	cfg.MaxRegenerations = d.MaxRegenerations
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	div := diversity.DefaultConfig()
	return &Config{
		Store: StoreConfig{Backend: store.BackendSQLite},
		Log:   LogConfig{Level: "info", Format: "text"},
		Catalog: CatalogConfig{
			FocusModule: curriculum.FocusModuleID,
		},
		Diversity: DiversityConfig{
			HistorySize:      div.HistorySize,
			AvoidWindow:      div.AvoidWindow,
			Threshold:        div.Threshold,
			RelaxStep:        div.RelaxStep,
			MaxRegenerations: div.MaxRegenerations,
		},
		Tuning: runstate.DefaultConfig(),
	}
}

// DefaultPath returns the config file location, in order of priority:
//  1. CADENCE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/cadence/config.yaml
//  3. ~/.config/cadence/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("CADENCE_CONFIG"); p != "" {
		return p, nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "cadence", "config.yaml"), nil
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.ApplyEnv()
	cfg.Tuning = cfg.Tuning.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays CADENCE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CADENCE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("CADENCE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CADENCE_STORE_URL"); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CADENCE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CADENCE_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("CADENCE_FOCUS_MODULE"); v != "" {
		c.Catalog.FocusModule = v
	}
}

// Validate reports every invalid setting together.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Backend) {
	case store.BackendSQLite, store.BackendMemory:
	case store.BackendRedis, store.BackendPostgres:
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("store.url is required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, &store.UnknownBackendError{Name: c.Store.Backend})
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if t := c.Diversity.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("diversity.threshold %v: want a value in [0, 1]", t))
	}
	if c.Diversity.MaxRegenerations < 0 {
		errs = append(errs, fmt.Errorf("diversity.max_regenerations must not be negative"))
	}
	return errors.Join(errs...)
}

// DSN returns the connection string for store.Open.
func (s StoreConfig) DSN() (string, error) {
	switch strings.ToLower(s.Backend) {
	case "", store.BackendSQLite:
		if s.Path != "" {
			return s.Path, nil
		}
		return store.DefaultDBPath()
	case store.BackendMemory:
		return "", nil
	}
	return s.URL, nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: want debug, info, warn or error", l.Level)
	}
	return lvl, nil
}

// NewLogger returns a logger writing to w in the configured format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
