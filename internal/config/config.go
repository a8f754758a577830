package config

import (
	"fmt"
	"os"
	"time"

	"Mansoor88-6/activity-hub/internal/models"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Tracking TrackingConfig `yaml:"tracking"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0:6666"`
	APIPrefix      string        `yaml:"api_prefix" env:"HTTP_API_PREFIX" env-default:"/api/v1"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"20s"`
}

type StorageConfig struct {
	Path          string `yaml:"path" env:"STORAGE_PATH" env-default:"data/activity.db"`
	MaxOpenConns  int    `yaml:"max_open_conns" env:"STORAGE_MAX_OPEN_CONNS" env-default:"4"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms" env:"STORAGE_BUSY_TIMEOUT_MS" env-default:"5000"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// TrackingConfig holds the fallback tracking settings used until an operator
// stores a runtime snapshot, and whenever that snapshot cannot be read.
type TrackingConfig struct {
	ChunkDurationSeconds            int `yaml:"chunk_duration_seconds" env:"TRACKING_CHUNK_DURATION_SECONDS" env-default:"300"`
	IdleThresholdSeconds            int `yaml:"idle_threshold_seconds" env:"TRACKING_IDLE_THRESHOLD_SECONDS" env-default:"60"`
	ClientHeartbeatIntervalSeconds  int `yaml:"client_heartbeat_interval_seconds" env:"TRACKING_CLIENT_HEARTBEAT_SECONDS" env-default:"60"`
	ServiceHeartbeatIntervalSeconds int `yaml:"service_heartbeat_interval_seconds" env:"TRACKING_SERVICE_HEARTBEAT_SECONDS" env-default:"120"`
	ConfigVersion                   int `yaml:"config_version" env:"TRACKING_CONFIG_VERSION" env-default:"1"`
	DayUTCOffsetMinutes             int `yaml:"day_utc_offset_minutes" env:"TRACKING_DAY_UTC_OFFSET_MINUTES" env-default:"0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// A missing file is not an error: defaults and environment are used.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.MaxOpenConns <= 0 {
		return fmt.Errorf("storage.max_open_conns must be positive")
	}
	if c.Tracking.DayUTCOffsetMinutes < -14*60 || c.Tracking.DayUTCOffsetMinutes > 14*60 {
		return fmt.Errorf("tracking.day_utc_offset_minutes out of range: %d", c.Tracking.DayUTCOffsetMinutes)
	}
	return nil
}

// TrackingDefaults converts the file/env tracking section into the fallback
// snapshot. Non-positive values fall back to the documented defaults.
func (c *Config) TrackingDefaults() models.TrackingSettings {
	s := models.DefaultTrackingSettings()
	t := c.Tracking
	if t.ChunkDurationSeconds > 0 {
		s.ChunkDurationSeconds = t.ChunkDurationSeconds
	}
	if t.IdleThresholdSeconds > 0 {
		s.IdleThresholdSeconds = t.IdleThresholdSeconds
	}
	if t.ClientHeartbeatIntervalSeconds > 0 {
		s.ClientHeartbeatIntervalSeconds = t.ClientHeartbeatIntervalSeconds
	}
	if t.ServiceHeartbeatIntervalSeconds > 0 {
		s.ServiceHeartbeatIntervalSeconds = t.ServiceHeartbeatIntervalSeconds
	}
	if t.ConfigVersion > 0 {
		s.Version = t.ConfigVersion
	}
	return s
}
