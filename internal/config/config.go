package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/rangeserve/internal/progress"
)

// Config defines configuration for the rangeserve server.
type Config struct {
	Addr            string        `yaml:"addr"`
	Root            string        `yaml:"root"`
	Bucket          string        `yaml:"bucket"`
	RateLimit       int64         `yaml:"rate_limit"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StatsInterval   time.Duration `yaml:"stats_interval"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LockTimeout:     5 * time.Second,
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// fileConfig is the on-disk form, with sizes and durations as strings.
type fileConfig struct {
	Addr            string `yaml:"addr" toml:"addr"`
	Root            string `yaml:"root" toml:"root"`
	Bucket          string `yaml:"bucket" toml:"bucket"`
	RateLimit       string `yaml:"rate_limit" toml:"rate_limit"`
	LockTimeout     string `yaml:"lock_timeout" toml:"lock_timeout"`
	ReadTimeout     string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	StatsInterval   string `yaml:"stats_interval" toml:"stats_interval"`
}

// LoadFromFile loads configuration from a YAML file, or a TOML file when the
// path ends in .toml. Unset keys keep their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.Root != "" {
		cfg.Root = fc.Root
	}
	if fc.Bucket != "" {
		cfg.Bucket = fc.Bucket
	}
	if fc.RateLimit != "" {
		limit, err := progress.ParseBytes(fc.RateLimit)
		if err != nil {
			return Config{}, fmt.Errorf("parse rate_limit: %w", err)
		}
		cfg.RateLimit = limit
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"lock_timeout", fc.LockTimeout, &cfg.LockTimeout},
		{"read_timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"stats_interval", fc.StatsInterval, &cfg.StatsInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the RANGESERVE_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("RANGESERVE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("RANGESERVE_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("RANGESERVE_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("RANGESERVE_RATE_LIMIT"); v != "" {
		limit, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse RANGESERVE_RATE_LIMIT: %w", err)
		}
		c.RateLimit = limit
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"RANGESERVE_LOCK_TIMEOUT", &c.LockTimeout},
		{"RANGESERVE_READ_TIMEOUT", &c.ReadTimeout},
		{"RANGESERVE_WRITE_TIMEOUT", &c.WriteTimeout},
		{"RANGESERVE_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
		{"RANGESERVE_STATS_INTERVAL", &c.StatsInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if c.Root == "" && c.Bucket == "" {
		return errors.New("config: one of root or bucket is required")
	}
	if c.Root != "" && c.Bucket != "" {
		return errors.New("config: root and bucket are mutually exclusive")
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if c.LockTimeout <= 0 {
		return errors.New("config: lock_timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: shutdown_timeout must be positive")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.StatsInterval < 0 {
		return errors.New("config: timeouts and intervals must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Addr != "" {
		c.Addr = override.Addr
	}
	if override.Root != "" {
		c.Root = override.Root
		c.Bucket = ""
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
		if override.Root == "" {
			c.Root = ""
		}
	}
	if override.RateLimit != 0 {
		c.RateLimit = override.RateLimit
	}
	if override.LockTimeout != 0 {
		c.LockTimeout = override.LockTimeout
	}
	if override.ReadTimeout != 0 {
		c.ReadTimeout = override.ReadTimeout
	}
	if override.WriteTimeout != 0 {
		c.WriteTimeout = override.WriteTimeout
	}
	if override.ShutdownTimeout != 0 {
		c.ShutdownTimeout = override.ShutdownTimeout
	}
	if override.StatsInterval != 0 {
		c.StatsInterval = override.StatsInterval
	}
	return c
}
