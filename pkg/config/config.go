// Package config handles loading and saving dealtree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/dealtree/config.yaml
//   - Data:    ~/.local/share/dealtree/ (dealtree.db)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "dealtree"

// CatalogConfig points at taxonomy catalog files. Empty paths use the
// catalogs compiled into the binary.
type CatalogConfig struct {
	Geography string `yaml:"geography,omitempty"` // YAML or JSON geography catalog
	Industry  string `yaml:"industry,omitempty"`  // YAML or JSON industry catalog
}

// SessionConfig is the default identity used by the CLI.
type SessionConfig struct {
	UserID string `yaml:"user_id,omitempty"`
	Role   string `yaml:"role,omitempty"` // buyer or seller
	Token  string `yaml:"token,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Theme      string `yaml:"theme,omitempty"`       // auto, dark, light
	StartPane  string `yaml:"start_pane,omitempty"`  // geography or industry
	ChipWidth  int    `yaml:"chip_width,omitempty"`  // Max cells per selected-name chip
	ShowCounts bool   `yaml:"show_counts,omitempty"` // Show selected/total next to parents
}

// WatchConfig controls reloading of catalog files while the editor runs.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled,omitempty"`
	DebounceMs int   `yaml:"debounce_ms,omitempty"`
	ForcePoll  bool  `yaml:"force_poll,omitempty"`
}

// IsEnabled reports whether catalog watching is on (default true).
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// Config is the top-level configuration for dealtree.
type Config struct {
	Database string        `yaml:"database,omitempty"`
	Catalogs CatalogConfig `yaml:"catalogs,omitempty"`
	Session  SessionConfig `yaml:"session,omitempty"`
	UI       UIConfig      `yaml:"ui,omitempty"`
	Watch    WatchConfig   `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Role: "buyer",
		},
		UI: UIConfig{
			Theme:     "auto",
			StartPane: "geography",
			ChipWidth: 24,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
	}
}

// Validate rejects settings the rest of the program cannot act on.
func (c Config) Validate() error {
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be auto, dark or light, got %q", c.UI.Theme)
	}
	switch c.UI.StartPane {
	case "", "geography", "industry":
	default:
		return fmt.Errorf("ui.start_pane must be geography or industry, got %q", c.UI.StartPane)
	}
	switch strings.ToLower(c.Session.Role) {
	case "", "buyer", "seller":
	default:
		return fmt.Errorf("session.role must be buyer or seller, got %q", c.Session.Role)
	}
	if c.UI.ChipWidth < 0 || c.Watch.DebounceMs < 0 {
		return fmt.Errorf("ui.chip_width and watch.debounce_ms cannot be negative")
	}
	return nil
}

// DatabasePath returns the configured database, or dealtree.db in the data
// directory.
func (c Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	dir := DataDir()
	if dir == "" {
		return "dealtree.db"
	}
	return filepath.Join(dir, "dealtree.db")
}

// ConfigDir returns the XDG config directory for dealtree.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for dealtree.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Database = expandHome(cfg.Database)
	cfg.Catalogs.Geography = expandHome(cfg.Catalogs.Geography)
	cfg.Catalogs.Industry = expandHome(cfg.Catalogs.Industry)

	return cfg, nil
}

// ApplyEnv overlays DT_USER, DT_ROLE, DT_TOKEN and DT_DB onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DT_USER"); v != "" {
		c.Session.UserID = v
	}
	if v := os.Getenv("DT_ROLE"); v != "" {
		c.Session.Role = v
	}
	if v := os.Getenv("DT_TOKEN"); v != "" {
		c.Session.Token = v
	}
	if v := os.Getenv("DT_DB"); v != "" {
		c.Database = expandHome(v)
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The session token may be present; keep the file private.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
