package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BackupConfig controls periodic copies of the sqlite database.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	HTTP struct {
		Addr           string  `yaml:"addr"`
		APIKey         string  `yaml:"api_key"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"logging"`

	Database struct {
		Driver string `yaml:"driver"` // memory | sqlite
		Path   string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`

	Lifecycle struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"lifecycle"`

	Audit struct {
		Capacity      int `yaml:"capacity"`
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"audit"`

	Booking struct {
		AvailableDatesDays int    `yaml:"available_dates_days"`
		StepMinutes        int    `yaml:"step_minutes"`
		Timezone           string `yaml:"timezone"`
	} `yaml:"booking"`

	RestaurantsConfigPath   string `yaml:"restaurants_config_path"`
	RestaurantsWatchSeconds int    `yaml:"restaurants_watch_seconds"`
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
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/restobook.db"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.RestaurantsConfigPath == "" {
		c.RestaurantsConfigPath = "configs/restaurants.yaml"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("database.driver: unknown driver '%s', expected memory or sqlite", c.Database.Driver)
	}
	if c.Booking.Timezone != "" {
		if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
			return fmt.Errorf("booking.timezone: %w", err)
		}
	}
	if c.Backup.Enabled && c.Database.Driver != "sqlite" {
		return fmt.Errorf("backup: only the sqlite driver can be backed up")
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) LifecycleInterval() time.Duration {
	if c.Lifecycle.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Lifecycle.IntervalSeconds) * time.Second
}

func (c *Config) RestaurantsWatchInterval() time.Duration {
	if c.RestaurantsWatchSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RestaurantsWatchSeconds) * time.Second
}

func (c *Config) AvailableDatesDays() int {
	if c.Booking.AvailableDatesDays <= 0 {
		return 7
	}
	return c.Booking.AvailableDatesDays
}

func (c *Config) AvailableDatesStep() time.Duration {
	if c.Booking.StepMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Booking.StepMinutes) * time.Minute
}

// Location is the zone used for plain calendar dates in requests.
func (c *Config) Location() *time.Location {
	if c.Booking.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
