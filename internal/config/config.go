// Package config loads the service configuration from config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"firstcall/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

// TrackingConfig tunes the live tracking coordinator.
type TrackingConfig struct {
	StaleAfter                time.Duration `mapstructure:"stale_after" validate:"gt=0"`
	HealthCheckInterval       time.Duration `mapstructure:"health_check_interval" validate:"gt=0"`
	FixTimeout                time.Duration `mapstructure:"fix_timeout" validate:"gt=0"`
	DefaultETAMinutes         int           `mapstructure:"default_eta_minutes" validate:"gte=0"`
	AverageSpeedKmh           float64       `mapstructure:"average_speed_kmh" validate:"gt=0"`
	ArrivalThresholdMeters    float64       `mapstructure:"arrival_threshold_meters" validate:"gt=0"`
	ArrivalConsecutiveUpdates int           `mapstructure:"arrival_consecutive_updates" validate:"gte=1"`
}

// FeedConfig selects and tunes the vehicle position feed.
type FeedConfig struct {
	Mode             string        `mapstructure:"mode" validate:"oneof=simulated network"`
	Interval         time.Duration `mapstructure:"interval" validate:"gt=0"`
	JitterDegrees    float64       `mapstructure:"jitter_degrees" validate:"gt=0,lte=1"`
	DriftFraction    float64       `mapstructure:"drift_fraction" validate:"gte=0,lte=1"`
	Seed             int64         `mapstructure:"seed"`
	URL              string        `mapstructure:"url" validate:"omitempty,url"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff" validate:"gt=0"`
}

// SessionsConfig bounds in-memory session bookkeeping.
type SessionsConfig struct {
	RetainedSnapshots int `mapstructure:"retained_snapshots" validate:"gte=1"`
}

// NotifyConfig configures facility notifications. An empty region logs
// notifications instead of sending them through SES.
type NotifyConfig struct {
	Region        string `mapstructure:"region"`
	FromEmail     string `mapstructure:"from_email" validate:"omitempty,email"`
	FacilityEmail string `mapstructure:"facility_email" validate:"omitempty,email"`
}

// FleetConfig holds the static roster used when no database is configured.
type FleetConfig struct {
	Vehicles []models.Ambulance `mapstructure:"vehicles" validate:"dive"`
}

// Config is the root configuration structure.
type Config struct {
	ServerPort   string         `mapstructure:"server_port" validate:"required,numeric"`
	ClientOrigin string         `mapstructure:"client_origin"`
	DatabaseURL  string         `mapstructure:"database_url"`
	LogLevel     string         `mapstructure:"log_level" validate:"oneof=debug info warn error off"`
	Tracking     TrackingConfig `mapstructure:"tracking"`
	Feed         FeedConfig     `mapstructure:"feed"`
	Sessions     SessionsConfig `mapstructure:"sessions"`
	Notify       NotifyConfig   `mapstructure:"notify"`
	Fleet        FleetConfig    `mapstructure:"fleet"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("client_origin", "http://localhost:8081")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("tracking.stale_after", 10*time.Second)
	v.SetDefault("tracking.health_check_interval", time.Second)
	v.SetDefault("tracking.fix_timeout", 15*time.Second)
	v.SetDefault("tracking.default_eta_minutes", 15)
	v.SetDefault("tracking.average_speed_kmh", 40.0)
	v.SetDefault("tracking.arrival_threshold_meters", 50.0)
	v.SetDefault("tracking.arrival_consecutive_updates", 2)

	v.SetDefault("feed.mode", "simulated")
	v.SetDefault("feed.interval", 3*time.Second)
	v.SetDefault("feed.jitter_degrees", 0.005)
	v.SetDefault("feed.drift_fraction", 0.4)
	v.SetDefault("feed.seed", 0)
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.reconnect_backoff", 2*time.Second)

	v.SetDefault("sessions.retained_snapshots", 256)

	v.SetDefault("notify.region", "")
	v.SetDefault("notify.from_email", "")
	v.SetDefault("notify.facility_email", "")
}

// LoadConfig reads config.yaml from path (if present), applies environment
// overrides such as TRACKING_STALE_AFTER and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.LoadConfig read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.LoadConfig unmarshal: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config.LoadConfig validate: %w", err)
	}
	if cfg.Feed.Mode == "network" && cfg.Feed.URL == "" {
		return nil, errors.New("config.LoadConfig: feed.url is required in network mode")
	}
	if cfg.Notify.Region != "" && cfg.Notify.FromEmail == "" {
		return nil, errors.New("config.LoadConfig: notify.from_email is required when notify.region is set")
	}
	return &cfg, nil
}

// Level maps log_level to a gommon log level.
func (c *Config) Level() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
