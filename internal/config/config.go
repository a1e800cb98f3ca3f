package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/theme"
	"github.com/iconidentify/mediaslayer/internal/worker"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Form      FormConfig      `yaml:"form"`
	UI        UIConfig        `yaml:"ui"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Events    EventsConfig    `yaml:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

// FormConfig holds the simulated session timing.
type FormConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval" envconfig:"FORM_TICK_INTERVAL"`
	MaxIncrement  float64       `yaml:"max_increment" envconfig:"FORM_MAX_INCREMENT"`
	ProgressCap   float64       `yaml:"progress_cap" envconfig:"FORM_PROGRESS_CAP"`
	CompleteAfter time.Duration `yaml:"complete_after" envconfig:"FORM_COMPLETE_AFTER"`
	ResetAfter    time.Duration `yaml:"reset_after" envconfig:"FORM_RESET_AFTER"`
	RetryAttempts int           `yaml:"retry_attempts" envconfig:"FORM_RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"FORM_RETRY_DELAY"`
}

// UIConfig holds presentation configuration.
type UIConfig struct {
	Theme     string `yaml:"theme" envconfig:"UI_THEME"`
	ThemeFile string `yaml:"theme_file" envconfig:"UI_THEME_FILE"`
}

// SessionsConfig controls how long idle forms are kept.
type SessionsConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"SESSIONS_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSIONS_SWEEP_INTERVAL"`
}

// RateLimitConfig limits submits per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// EventsConfig holds activity log configuration.
type EventsConfig struct {
	RingBufferSize int `yaml:"ring_buffer_size" envconfig:"EVENTS_RING_BUFFER_SIZE"`
}

// LoadDotEnv loads variables from a .env file into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        9848,
			ReadTimeout: 30 * time.Second,
			// Zero: SSE streams stay open for the life of the page.
			WriteTimeout: 0,
		},
		Form: FormConfig{
			TickInterval:  200 * time.Millisecond,
			MaxIncrement:  15,
			ProgressCap:   90,
			CompleteAfter: 3 * time.Second,
			ResetAfter:    3 * time.Second,
			RetryAttempts: 1,
			RetryDelay:    500 * time.Millisecond,
		},
		UI: UIConfig{
			Theme: theme.PlainName,
		},
		Sessions: SessionsConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Events: EventsConfig{
			RingBufferSize: 1000,
		},
	}
}

// Load reads configuration from file and environment variables on top of
// the defaults. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Form.TickInterval <= 0 {
		return fmt.Errorf("FORM_TICK_INTERVAL must be positive")
	}
	if c.Form.MaxIncrement <= 0 {
		return fmt.Errorf("FORM_MAX_INCREMENT must be positive")
	}
	if c.Form.ProgressCap <= 0 || c.Form.ProgressCap >= 100 {
		return fmt.Errorf("FORM_PROGRESS_CAP must be between 0 and 100 exclusive")
	}
	if c.Form.CompleteAfter <= 0 || c.Form.ResetAfter <= 0 {
		return fmt.Errorf("FORM_COMPLETE_AFTER and FORM_RESET_AFTER must be positive")
	}
	if c.Form.RetryAttempts < 1 {
		return fmt.Errorf("FORM_RETRY_ATTEMPTS must be at least 1")
	}
	if c.UI.ThemeFile == "" {
		if _, err := theme.Lookup(c.UI.Theme); err != nil {
			return fmt.Errorf("UI_THEME: %w", err)
		}
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("RATE_LIMIT values must not be negative")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FormConfig converts the form section into the form package's config.
func (c *FormConfig) FormConfig() form.Config {
	return form.Config{
		TickInterval:  c.TickInterval,
		MaxIncrement:  c.MaxIncrement,
		ProgressCap:   c.ProgressCap,
		CompleteAfter: c.CompleteAfter,
		ResetAfter:    c.ResetAfter,
		Retry: form.RetryConfig{
			MaxAttempts:   c.RetryAttempts,
			InitialDelay:  c.RetryDelay,
			MaxDelay:      10 * c.RetryDelay,
			BackoffFactor: 2,
		},
	}
}

// SweeperConfig converts the sessions section into the sweeper's config.
func (c *SessionsConfig) SweeperConfig() worker.Config {
	return worker.Config{
		Interval: c.SweepInterval,
		IdleTTL:  c.IdleTTL,
	}
}

// Themes builds the theme set, including the override file if configured.
// The override theme becomes the default when UI.Theme names it.
func (c *UIConfig) Themes() (*theme.Set, error) {
	var extra []theme.Theme
	if c.ThemeFile != "" {
		t, err := theme.LoadFile(c.ThemeFile)
		if err != nil {
			return nil, err
		}
		extra = append(extra, t)
	}
	return theme.NewSet(c.Theme, extra...)
}
