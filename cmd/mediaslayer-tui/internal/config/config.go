// Package config provides configuration management for the MediaSlayer TUI.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

// Config holds the TUI configuration.
type Config struct {
	// Presentation
	Theme     string
	ThemeFile string

	// Simulated session timing
	TickInterval  time.Duration
	MaxIncrement  float64
	CompleteAfter time.Duration
	ResetAfter    time.Duration

	// LogFile receives debug logs; empty discards them so the screen
	// stays clean.
	LogFile string
}

// Load returns configuration from environment variables with sensible defaults.
func Load() *Config {
	defaults := form.DefaultConfig()
	return &Config{
		Theme:         getEnv("MEDIASLAYER_THEME", theme.QuestName),
		ThemeFile:     getEnv("MEDIASLAYER_THEME_FILE", ""),
		TickInterval:  getDuration("MEDIASLAYER_TICK_INTERVAL", defaults.TickInterval),
		MaxIncrement:  getFloat("MEDIASLAYER_MAX_INCREMENT", defaults.MaxIncrement),
		CompleteAfter: getDuration("MEDIASLAYER_COMPLETE_AFTER", defaults.CompleteAfter),
		ResetAfter:    getDuration("MEDIASLAYER_RESET_AFTER", defaults.ResetAfter),
		LogFile:       getEnv("MEDIASLAYER_LOG_FILE", ""),
	}
}

// FormConfig returns the form timing for this configuration.
func (c *Config) FormConfig() form.Config {
	cfg := form.DefaultConfig()
	cfg.TickInterval = c.TickInterval
	cfg.MaxIncrement = c.MaxIncrement
	cfg.CompleteAfter = c.CompleteAfter
	cfg.ResetAfter = c.ResetAfter
	return cfg
}

// LoadTheme resolves the configured theme, applying the override file if set.
func (c *Config) LoadTheme() (theme.Theme, error) {
	var extra []theme.Theme
	if c.ThemeFile != "" {
		t, err := theme.LoadFile(c.ThemeFile)
		if err != nil {
			return theme.Theme{}, err
		}
		extra = append(extra, t)
	}
	set, err := theme.NewSet(c.Theme, extra...)
	if err != nil {
		return theme.Theme{}, err
	}
	return set.Default(), nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultVal
}
