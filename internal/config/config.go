package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the persistent application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Listing ListingConfig `mapstructure:"listing"`
	Logging LoggingConfig `mapstructure:"logging"`
	Warm    WarmConfig    `mapstructure:"warm"`

	// City scopes every screen. Empty means nationwide.
	City string `mapstructure:"city"`

	// DataDir holds the snapshot database, event log and log files.
	DataDir string `mapstructure:"data_dir"`
}

// CatalogConfig holds remote catalog API settings
type CatalogConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// ListingConfig sizes the revealed window of every listing
type ListingConfig struct {
	InitialWindow int           `mapstructure:"initial_window"`
	WindowStep    int           `mapstructure:"window_step"`
	Debounce      time.Duration `mapstructure:"debounce"`
	RevealLatency time.Duration `mapstructure:"reveal_latency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// WarmConfig lists snapshot targets fetched by `shr warm`
type WarmConfig struct {
	Targets       []string      `mapstructure:"targets"` // "endpoint" or "endpoint?key=value&..."
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Interval      time.Duration `mapstructure:"interval"` // 0 runs once
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:       "http://localhost:8080",
			Timeout:       15 * time.Second,
			RatePerSecond: 4,
		},
		Listing: ListingConfig{
			InitialWindow: 10,
			WindowStep:    10,
			Debounce:      250 * time.Millisecond,
			RevealLatency: 400 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Warm: WarmConfig{
			Targets:       []string{"brands", "variants", "dealers"},
			MaxConcurrent: 4,
		},
		DataDir: defaultDataDir(),
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".showroom")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// DBPath returns the snapshot database path
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "showroom.db")
}

// EventsPath returns the JSONL event log path
func (c *Config) EventsPath() string {
	return filepath.Join(c.DataDir, "showroom.events.jsonl")
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("catalog.base_url", d.Catalog.BaseURL)
	v.SetDefault("catalog.token", d.Catalog.Token)
	v.SetDefault("catalog.timeout", d.Catalog.Timeout)
	v.SetDefault("catalog.rate_per_second", d.Catalog.RatePerSecond)
	v.SetDefault("listing.initial_window", d.Listing.InitialWindow)
	v.SetDefault("listing.window_step", d.Listing.WindowStep)
	v.SetDefault("listing.debounce", d.Listing.Debounce)
	v.SetDefault("listing.reveal_latency", d.Listing.RevealLatency)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("warm.targets", d.Warm.Targets)
	v.SetDefault("warm.max_concurrent", d.Warm.MaxConcurrent)
	v.SetDefault("warm.interval", d.Warm.Interval)
	v.SetDefault("city", d.City)
	v.SetDefault("data_dir", d.DataDir)

	// SHOWROOM_CATALOG_BASE_URL overrides catalog.base_url, and so on.
	v.SetEnvPrefix("SHOWROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config from path (ConfigPath() when empty), layering environment
// overrides on top. A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to path (ConfigPath() when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	v := viper.New()
	v.Set("catalog.base_url", c.Catalog.BaseURL)
	v.Set("catalog.token", c.Catalog.Token)
	v.Set("catalog.timeout", c.Catalog.Timeout.String())
	v.Set("catalog.rate_per_second", c.Catalog.RatePerSecond)
	v.Set("listing.initial_window", c.Listing.InitialWindow)
	v.Set("listing.window_step", c.Listing.WindowStep)
	v.Set("listing.debounce", c.Listing.Debounce.String())
	v.Set("listing.reveal_latency", c.Listing.RevealLatency.String())
	v.Set("logging.level", c.Logging.Level)
	v.Set("warm.targets", c.Warm.Targets)
	v.Set("warm.max_concurrent", c.Warm.MaxConcurrent)
	v.Set("warm.interval", c.Warm.Interval.String())
	v.Set("city", c.City)
	v.Set("data_dir", c.DataDir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// Restrictive permissions for the API token
	return os.Chmod(path, 0600)
}

// Validate rejects settings the listing and client cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Catalog.BaseURL != "" {
		u, err := url.Parse(c.Catalog.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("catalog.base_url %q is not an absolute URL", c.Catalog.BaseURL))
		}
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must not be negative"))
	}
	if c.Listing.InitialWindow <= 0 {
		errs = append(errs, fmt.Errorf("listing.initial_window must be positive, got %d", c.Listing.InitialWindow))
	}
	if c.Listing.WindowStep <= 0 {
		errs = append(errs, fmt.Errorf("listing.window_step must be positive, got %d", c.Listing.WindowStep))
	}
	if c.Listing.Debounce < 0 || c.Listing.RevealLatency < 0 {
		errs = append(errs, fmt.Errorf("listing delays must not be negative"))
	}
	if c.Warm.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("warm.max_concurrent must be positive, got %d", c.Warm.MaxConcurrent))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir must be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// IsConfigured returns true if a catalog URL is set
func (c *Config) IsConfigured() bool {
	return c.Catalog.BaseURL != ""
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
