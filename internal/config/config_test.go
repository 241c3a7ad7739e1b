package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/cadence/internal/runstate"
	"github.com/abhisek/cadence/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CADENCE_CONFIG", "CADENCE_BACKEND", "CADENCE_DB", "CADENCE_STORE_URL",
		"CADENCE_LOG_LEVEL", "CADENCE_LOG_FORMAT", "CADENCE_CATALOG", "CADENCE_FOCUS_MODULE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != store.BackendSQLite {
		t.Errorf("Store.Backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if cfg.Tuning != runstate.DefaultConfig() {
		t.Errorf("Tuning = %+v, want defaults", cfg.Tuning)
	}
	if cfg.Diversity.Threshold != 0.85 {
		t.Errorf("Diversity.Threshold = %v, want 0.85", cfg.Diversity.Threshold)
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
store:
  backend: redis
  url: redis://localhost:6379/2
log:
  level: debug
  format: json
catalog:
  path: /tmp/catalog.yaml
  focus_module: arrays
diversity:
  threshold: 0.7
  max_regenerations: 5
tuning:
  streak_to_promote: 4
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.URL != "redis://localhost:6379/2" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Catalog.FocusModule != "arrays" {
		t.Errorf("Catalog.FocusModule = %q, want arrays", cfg.Catalog.FocusModule)
	}
	if cfg.Tuning.StreakToPromote != 4 {
		t.Errorf("Tuning.StreakToPromote = %d, want 4", cfg.Tuning.StreakToPromote)
	}
	if cfg.Tuning.AggressiveStreakToPromote != 2 {
		t.Errorf("unset tuning keys should keep defaults, got %+v", cfg.Tuning)
	}

	eng := cfg.Diversity.Engine()
	if eng.Threshold != 0.7 || eng.MaxRegenerations != 5 || eng.HistorySize != 20 {
		t.Errorf("Engine() = %+v", eng)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "store:\n  backend: sqlite\n  path: /from/file.db\nlog:\n  level: warn\n")
	t.Setenv("CADENCE_DB", "/from/env.db")
	t.Setenv("CADENCE_LOG_LEVEL", "error")
	t.Setenv("CADENCE_FOCUS_MODULE", "loops")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Path != "/from/env.db" {
		t.Errorf("Store.Path = %q, want env value", cfg.Store.Path)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want error", cfg.Log.Level)
	}
	if cfg.Catalog.FocusModule != "loops" {
		t.Errorf("Catalog.FocusModule = %q, want loops", cfg.Catalog.FocusModule)
	}
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("CADENCE_CONFIG", writeFile(t, "log:\n  format: json\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeFile(t, "store: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory", func(c *Config) { c.Store.Backend = "memory" }, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, `unknown store backend "etcd"`},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }, "store.url is required"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"threshold", func(c *Config) { c.Diversity.Threshold = 1.5 }, "diversity.threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "etcd"
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"etcd", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestStoreDSN(t *testing.T) {
	t.Setenv("CADENCE_DB", filepath.Join(t.TempDir(), "env.db"))

	tests := []struct {
		cfg  StoreConfig
		want string
	}{
		{StoreConfig{Backend: "sqlite", Path: "/tmp/x.db"}, "/tmp/x.db"},
		{StoreConfig{Backend: "sqlite"}, os.Getenv("CADENCE_DB")},
		{StoreConfig{Backend: "memory", URL: "ignored"}, ""},
		{StoreConfig{Backend: "redis", URL: "redis://h:6379"}, "redis://h:6379"},
	}
	for _, tt := range tests {
		got, err := tt.cfg.DSN()
		if err != nil {
			t.Fatalf("DSN(%+v) error = %v", tt.cfg, err)
		}
		if got != tt.want {
			t.Errorf("DSN(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected output: %s", out)
	}

	lvl, err := LogConfig{Level: "DEBUG"}.SlogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("SlogLevel(DEBUG) = %v, %v", lvl, err)
	}
}
