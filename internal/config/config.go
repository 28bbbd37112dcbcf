// Package config provides configuration management for the event engine.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (no prefix: PORT, DATA_DIR, ...)
// 3. Default values
//
// Import Path: github.com/eventstore/eventcore/internal/config
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Log        LogConfig        `mapstructure:"log"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

// ServerConfig contains HTTP server settings for the ingestion façade.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_minute"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig controls the event/topic durable backend.
type StorageConfig struct {
	// Backend selects "memory" or "file". The spec treats the in-memory
	// backend as equally valid for tests and for small deployments.
	Backend string `mapstructure:"backend"`

	// DataDir is the event store root (§4.3 hierarchical file layout).
	DataDir string `mapstructure:"data_dir"`

	// ConfigDir is the topic config root (§6 topic config file layout).
	ConfigDir string `mapstructure:"config_dir"`

	// DateFilterTimezone resolves Open Question (b): the time zone used
	// by EventStore.getEvents' `date` filter. Defaults to UTC.
	DateFilterTimezone string `mapstructure:"date_filter_timezone"`
}

// Location parses DateFilterTimezone, defaulting to UTC on any error.
func (s StorageConfig) Location() *time.Location {
	if s.DateFilterTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.DateFilterTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DispatcherConfig controls webhook delivery scheduling.
type DispatcherConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize  int `mapstructure:"general_pool_size"`
	DeliveryPoolSize int `mapstructure:"delivery_pool_size"`
}

// BootstrapConfig carries the seed admin credentials for the idempotent
// system-tenant bootstrap (§4.7.3).
type BootstrapConfig struct {
	SystemAdminEmail    string `mapstructure:"system_admin_email"`
	SystemAdminPassword string `mapstructure:"system_admin_password"`
}

// Load reads configuration from file and environment variables.
// Environment variables use the spec's exact names without a prefix:
// PORT, DATA_DIR, CONFIG_DIR, MAX_BODY_BYTES, RATE_LIMIT_PER_MINUTE,
// SYSTEM_ADMIN_EMAIL, SYSTEM_ADMIN_PASSWORD.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/eventcore")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindSpecEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// bindSpecEnvVars wires the bare environment variable names called out by
// the spec (§6) directly onto their mapstructure keys, since those names
// don't follow the SCREAMING_SNAKE(section.key) convention viper derives
// automatically.
func bindSpecEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("storage.data_dir", "DATA_DIR")
	_ = v.BindEnv("storage.config_dir", "CONFIG_DIR")
	_ = v.BindEnv("server.max_body_bytes", "MAX_BODY_BYTES")
	_ = v.BindEnv("server.rate_limit_per_minute", "RATE_LIMIT_PER_MINUTE")
	_ = v.BindEnv("bootstrap.system_admin_email", "SYSTEM_ADMIN_EMAIL")
	_ = v.BindEnv("bootstrap.system_admin_password", "SYSTEM_ADMIN_PASSWORD")
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Storage.Backend != "memory" && c.Storage.Backend != "file" {
		return fmt.Errorf("storage.backend must be \"memory\" or \"file\", got %q", c.Storage.Backend)
	}
	if c.Dispatcher.MaxAttempts <= 0 {
		return fmt.Errorf("dispatcher.max_attempts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20) // 1 MiB
	v.SetDefault("server.rate_limit_per_minute", 600)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Storage
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.data_dir", "./data/events")
	v.SetDefault("storage.config_dir", "./data/topics")
	v.SetDefault("storage.date_filter_timezone", "UTC")

	// Dispatcher (§4.5)
	v.SetDefault("dispatcher.tick_interval", "500ms")
	v.SetDefault("dispatcher.batch_size", 100)
	v.SetDefault("dispatcher.delivery_timeout", "10s")
	v.SetDefault("dispatcher.max_attempts", 8)
	v.SetDefault("dispatcher.initial_backoff", "1s")
	v.SetDefault("dispatcher.max_backoff", "60s")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker Pool
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.delivery_pool_size", 100)

	// Bootstrap
	v.SetDefault("bootstrap.system_admin_email", "")
	v.SetDefault("bootstrap.system_admin_password", "")
}
