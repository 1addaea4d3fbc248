package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SAVESMITH_"

// Config holds all savesmith configuration.
type Config struct {
	// StateDir holds logs, the recent-saves database and the default config file.
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`

	// Local editor backend
	Backend BackendConfig `yaml:"backend"`

	// Backend readiness polling
	Readiness ReadinessConfig `yaml:"readiness"`

	// Save file browser
	Saves SavesConfig `yaml:"saves"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Recent saves database
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the HTTP client for the local backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url" env:"BACKEND_URL"`
	Timeout string `yaml:"timeout" env:"BACKEND_TIMEOUT"`
}

// ReadinessConfig configures the readiness poller schedule.
type ReadinessConfig struct {
	InitialInterval string  `yaml:"initial_interval"`
	Multiplier      float64 `yaml:"multiplier"`
	MaxInterval     string  `yaml:"max_interval"`
	MaxWait         string  `yaml:"max_wait" env:"READY_TIMEOUT"`
	RequestTimeout  string  `yaml:"request_timeout"`
}

// SavesConfig configures the save browser and directory watcher.
type SavesConfig struct {
	Dir           string `yaml:"dir" env:"SAVES_DIR"`
	PageSize      int    `yaml:"page_size"`
	Watch         bool   `yaml:"watch"`
	WatchDebounce string `yaml:"watch_debounce"`
}

// UIConfig configures the interactive editor.
type UIConfig struct {
	Theme          string `yaml:"theme" env:"THEME"` // light, dark, auto
	FilterDebounce string `yaml:"filter_debounce"`
	ToastDuration  string `yaml:"toast_duration"`
}

// StoreConfig configures the recent saves database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" env:"DB"`
	RecentLimit  int    `yaml:"recent_limit"`
}

// DefaultStateDir returns ~/.savesmith, or .savesmith when the home
// directory is unknown.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".savesmith"
	}
	return filepath.Join(home, ".savesmith")
}

// DefaultConfigPath returns the config file inside the default state dir.
func DefaultConfigPath() string {
	return filepath.Join(DefaultStateDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StateDir: DefaultStateDir(),

		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:5174/api",
			Timeout: "30s",
		},

		Readiness: ReadinessConfig{
			InitialInterval: "500ms",
			Multiplier:      1.5,
			MaxInterval:     "5s",
			MaxWait:         "60s",
			RequestTimeout:  "2s",
		},

		Saves: SavesConfig{
			PageSize:      50,
			Watch:         true,
			WatchDebounce: "500ms",
		},

		UI: UIConfig{
			Theme:          "auto",
			FilterDebounce: "150ms",
			ToastDuration:  "4s",
		},

		Store: StoreConfig{
			RecentLimit: 10,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies SAVESMITH_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base_url %q: %w", c.Backend.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend base_url %q: scheme must be http or https", c.Backend.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend base_url %q: missing host", c.Backend.BaseURL)
	}

	if c.Readiness.Multiplier < 1 {
		return fmt.Errorf("readiness multiplier must be >= 1, got %v", c.Readiness.Multiplier)
	}
	if c.Saves.PageSize <= 0 {
		return fmt.Errorf("saves page_size must be positive, got %d", c.Saves.PageSize)
	}

	durations := map[string]string{
		"backend.timeout":            c.Backend.Timeout,
		"readiness.initial_interval": c.Readiness.InitialInterval,
		"readiness.max_interval":     c.Readiness.MaxInterval,
		"readiness.max_wait":         c.Readiness.MaxWait,
		"readiness.request_timeout":  c.Readiness.RequestTimeout,
		"saves.watch_debounce":       c.Saves.WatchDebounce,
		"ui.filter_debounce":         c.UI.FilterDebounce,
		"ui.toast_duration":          c.UI.ToastDuration,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", field, value)
		}
	}

	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui theme: %s (valid: auto, light, dark)", c.UI.Theme)
	}

	return nil
}

// LogsDir returns the directory for category log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// GetDatabasePath returns the recent saves database path.
func (c *Config) GetDatabasePath() string {
	if c.Store.DatabasePath != "" {
		return c.Store.DatabasePath
	}
	return filepath.Join(c.StateDir, "recent.db")
}

// GetBackendTimeout returns the HTTP client timeout.
func (c *Config) GetBackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 30*time.Second)
}

// GetInitialInterval returns the first readiness poll interval.
func (c *Config) GetInitialInterval() time.Duration {
	return parseDuration(c.Readiness.InitialInterval, 500*time.Millisecond)
}

// GetMaxInterval returns the readiness poll interval cap.
func (c *Config) GetMaxInterval() time.Duration {
	return parseDuration(c.Readiness.MaxInterval, 5*time.Second)
}

// GetMaxWait returns how long readiness polling may run in total.
func (c *Config) GetMaxWait() time.Duration {
	return parseDuration(c.Readiness.MaxWait, 60*time.Second)
}

// GetRequestTimeout returns the per-poll request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Readiness.RequestTimeout, 2*time.Second)
}

// GetWatchDebounce returns the saves watcher debounce window.
func (c *Config) GetWatchDebounce() time.Duration {
	return parseDuration(c.Saves.WatchDebounce, 500*time.Millisecond)
}

// GetFilterDebounce returns the UI filter debounce window.
func (c *Config) GetFilterDebounce() time.Duration {
	return parseDuration(c.UI.FilterDebounce, 150*time.Millisecond)
}

// GetToastDuration returns how long mutation feedback stays visible.
func (c *Config) GetToastDuration() time.Duration {
	return parseDuration(c.UI.ToastDuration, 4*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
