package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gookit/validate"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API        APIConfig        `toml:"api"`
	Login      LoginConfig      `toml:"login"`
	Library    LibraryConfig    `toml:"library"`
	MatchLog   MatchLogConfig   `toml:"match_log"`
	ImageCache ImageCacheConfig `toml:"image_cache"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

// APIConfig points at the NeteaseCloudMusicApi compatible proxy.
type APIConfig struct {
	BaseURL   string  `toml:"base_url" validate:"required|fullUrl"`
	TimeoutMS int     `toml:"timeout_ms" validate:"required|int|min:100"`
	RateLimit float64 `toml:"rate_limit" validate:"required|gt:0"`
}

// LoginConfig controls QR ticket polling.
type LoginConfig struct {
	PollIntervalMS   int `toml:"poll_interval_ms" validate:"required|int|min:500|max:10000"`
	TicketTTLSeconds int `toml:"ticket_ttl_seconds" validate:"required|int|min:30"`
}

// LibraryConfig controls cloud song paging.
type LibraryConfig struct {
	PageSize int `toml:"page_size" validate:"required|int|min:1|max:1000"`
}

// MatchLogConfig bounds the in-memory match log.
type MatchLogConfig struct {
	Capacity int `toml:"capacity" validate:"required|int|min:1"`
}

// ImageCacheConfig bounds the cover and avatar cache.
type ImageCacheConfig struct {
	SizeMB          int `toml:"size_mb" validate:"required|int|min:1"`
	FetchTimeoutMS  int `toml:"fetch_timeout_ms" validate:"required|int|min:100"`
	PrefetchWorkers int `toml:"prefetch_workers" validate:"required|int|min:1|max:32"`
}

// MetricsConfig enables the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LoggingConfig controls log verbosity and the TUI log file.
type LoggingConfig struct {
	Level string `toml:"level" validate:"required|in:debug,info,warn,error"`
	File  string `toml:"file"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// PollInterval returns the QR status poll interval.
func (c LoginConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// TicketTTL returns the local QR ticket lifetime.
func (c LoginConfig) TicketTTL() time.Duration {
	return time.Duration(c.TicketTTLSeconds) * time.Second
}

// FetchTimeout returns the per-image download timeout.
func (c ImageCacheConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// Validate checks each section against its validate tags.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		data any
	}{
		{"api", &c.API},
		{"login", &c.Login},
		{"library", &c.Library},
		{"match_log", &c.MatchLog},
		{"image_cache", &c.ImageCache},
		{"logging", &c.Logging},
	}

	for _, s := range sections {
		v := validate.Struct(s.data)
		if !v.Validate() {
			return fmt.Errorf("%w: [%s] %s", ErrInvalidConfig, s.name, v.Errors.One())
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: [metrics] addr is required when enabled", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
