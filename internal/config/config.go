// Package config loads and validates the agent configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/screenwatch/screenwatch/internal/phash"
)

// Switch policy names accepted in window.switch_policy.
const (
	SwitchBypassAll        = "bypass-all"
	SwitchBypassSimilarity = "bypass-similarity"
)

// Source holds the per-source capture settings. Intervals are milliseconds.
type Source struct {
	Enabled           bool  `yaml:"enabled"`
	IntervalMS        int64 `yaml:"interval"`
	EnforceIntervalMS int64 `yaml:"enforce_interval"`
	HashResolution    int   `yaml:"hash_resolution"`
	HashThreshold     int   `yaml:"hash_threshold"`

	// Window source only.
	EnableOCR    bool   `yaml:"enable_ocr"`
	SwitchPolicy string `yaml:"switch_policy"`
}

// Interval is the poll cadence.
func (s Source) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// EnforceInterval is the minimum elapsed time since the last emitted
// result before a new emission is considered.
func (s Source) EnforceInterval() time.Duration {
	return time.Duration(s.EnforceIntervalMS) * time.Millisecond
}

func (s Source) String() string {
	return fmt.Sprintf("interval=%dms, enforce=%dms, resolution=%d, threshold=%d",
		s.IntervalMS, s.EnforceIntervalMS, s.HashResolution, s.HashThreshold)
}

// Storage configures the local persistence sink.
type Storage struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Report configures the activity heartbeat reporter.
type Report struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// URL returns the reporter's base endpoint.
func (r Report) URL() string {
	return fmt.Sprintf("http://%s:%d", r.Host, r.Port)
}

// Server configures the status HTTP server.
type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Logging configures the slog level.
type Logging struct {
	Level string `yaml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Monitors        map[string]Source `yaml:"monitors"`
	Window          *Source           `yaml:"window"`
	Storage         Storage           `yaml:"storage"`
	Report          Report            `yaml:"report"`
	Server          Server            `yaml:"server"`
	Logging         Logging           `yaml:"logging"`
	ChannelCapacity int               `yaml:"channel_capacity"`
}

// Default returns a configuration with one enabled placeholder monitor and
// conservative gating values.
func Default() *Config {
	return &Config{
		Monitors: map[string]Source{
			"default": {
				Enabled:           true,
				IntervalMS:        1000,
				EnforceIntervalMS: 30000,
				HashResolution:    16,
				HashThreshold:     10,
			},
		},
		Window: &Source{
			Enabled:           false,
			IntervalMS:        1000,
			EnforceIntervalMS: 30000,
			HashResolution:    16,
			HashThreshold:     10,
			SwitchPolicy:      SwitchBypassAll,
		},
		Storage: Storage{
			Enabled: true,
			Path:    "/tmp/screenwatch",
		},
		Report: Report{
			Enabled: false,
			Host:    "localhost",
			Port:    5600,
		},
		Server: Server{
			Enabled: false,
			Addr:    ":8600",
		},
		Logging:         Logging{Level: "info"},
		ChannelCapacity: 100,
	}
}

// Load reads and validates a YAML configuration file. Unset top-level
// sections fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every enabled source's settings.
func (c *Config) Validate() error {
	enabled := 0
	for name, m := range c.Monitors {
		if err := validateSource(m); err != nil {
			return fmt.Errorf("monitor %q: %w", name, err)
		}
		if m.Enabled {
			enabled++
		}
	}

	if c.Window != nil {
		if err := validateSource(*c.Window); err != nil {
			return fmt.Errorf("window: %w", err)
		}
		switch c.Window.SwitchPolicy {
		case "", SwitchBypassAll, SwitchBypassSimilarity:
		default:
			return fmt.Errorf("window: unknown switch_policy %q", c.Window.SwitchPolicy)
		}
		if c.Window.Enabled {
			enabled++
		}
	}

	if enabled == 0 {
		return fmt.Errorf("no capture source enabled")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage enabled without a path")
	}
	if c.ChannelCapacity <= 0 {
		return fmt.Errorf("channel_capacity must be positive, got %d", c.ChannelCapacity)
	}
	return nil
}

func validateSource(s Source) error {
	if !s.Enabled {
		return nil
	}
	if s.IntervalMS <= 0 {
		return fmt.Errorf("interval must be positive, got %d", s.IntervalMS)
	}
	if s.EnforceIntervalMS < 0 {
		return fmt.Errorf("enforce_interval must not be negative, got %d", s.EnforceIntervalMS)
	}
	if err := phash.ValidateResolution(s.HashResolution); err != nil {
		return err
	}
	if s.HashThreshold < 0 || s.HashThreshold > s.HashResolution*s.HashResolution {
		return fmt.Errorf("hash_threshold must be within 0..%d, got %d",
			s.HashResolution*s.HashResolution, s.HashThreshold)
	}
	return nil
}
