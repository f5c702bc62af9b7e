package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"agenda/internal/calendar"
)

type Config struct {
	Server struct {
		Port               int     `yaml:"port"`
		APIKey             string  `yaml:"api_key"`
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`

	Agenda struct {
		TimeZone            string `yaml:"time_zone"`
		MaxFutureDays       int    `yaml:"max_future_days"`
		SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
		BufferBeforeMinutes *int   `yaml:"buffer_before_minutes"`
		BufferAfterMinutes  *int   `yaml:"buffer_after_minutes"`
		CacheTTLSeconds     int    `yaml:"cache_ttl_seconds"`
	} `yaml:"agenda"`

	BusinessConfigPath string `yaml:"business_config_path"`
}

// LoadEnv reads KEY=VALUE files into the process environment. Missing files
// are skipped; variables already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/agenda.db"
	}
	if cfg.BusinessConfigPath == "" {
		cfg.BusinessConfigPath = filepath.Join(filepath.Dir(path), "business.yaml")
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Database.Path != ":memory:" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if _, err := calendar.LoadZone(c.TimeZone()); err != nil {
		return fmt.Errorf("agenda.time_zone: %w", err)
	}
	if c.Agenda.MaxFutureDays < 0 {
		return fmt.Errorf("agenda.max_future_days cannot be negative")
	}
	if c.Agenda.SlotIntervalMinutes < 0 {
		return fmt.Errorf("agenda.slot_interval_minutes cannot be negative")
	}
	if b := c.Agenda.BufferBeforeMinutes; b != nil && *b < 0 {
		return fmt.Errorf("agenda.buffer_before_minutes cannot be negative")
	}
	if b := c.Agenda.BufferAfterMinutes; b != nil && *b < 0 {
		return fmt.Errorf("agenda.buffer_after_minutes cannot be negative")
	}
	if c.Server.RateLimitPerSecond < 0 {
		return fmt.Errorf("server.rate_limit_per_second cannot be negative")
	}
	return nil
}

// TimeZone is the IANA zone business hours are written in.
func (c *Config) TimeZone() string {
	if c.Agenda.TimeZone == "" {
		return "America/Bogota"
	}
	return c.Agenda.TimeZone
}

func (c *Config) MaxFutureDays() int {
	if c.Agenda.MaxFutureDays <= 0 {
		return 15
	}
	return c.Agenda.MaxFutureDays
}

func (c *Config) SlotInterval() time.Duration {
	if c.Agenda.SlotIntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Agenda.SlotIntervalMinutes) * time.Minute
}

func (c *Config) BufferBefore() time.Duration {
	return minutesOr(c.Agenda.BufferBeforeMinutes, 30)
}

func (c *Config) BufferAfter() time.Duration {
	return minutesOr(c.Agenda.BufferAfterMinutes, 30)
}

// CacheTTL of computed availability; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.Agenda.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Agenda.CacheTTLSeconds) * time.Second
}

func (c *Config) ServerPort() int {
	if c.Server.Port == 0 {
		return 8080
	}
	return c.Server.Port
}

func minutesOr(v *int, def int) time.Duration {
	if v == nil {
		return time.Duration(def) * time.Minute
	}
	return time.Duration(*v) * time.Minute
}
