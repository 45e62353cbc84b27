// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName               string   `mapstructure:"appname"`
	AppPort               string   `mapstructure:"appport"`
	Environment           string   `mapstructure:"environment"`
	LogLevel              LogLevel `mapstructure:"loglevel"`
	SaltPrefix            string   `mapstructure:"saltprefix"`
	SessionTimeoutSeconds int      `mapstructure:"sessiontimeoutseconds"`

	// File paths
	StoragePath string `mapstructure:"storagepath"`
	GeoDBPath   string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Data retention settings
	PageViewRetentionDays int `mapstructure:"pageviewretentiondays"`
	RealtimeWindowMinutes int `mapstructure:"realtimewindowminutes"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "visitra")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("saltprefix", "visitra")
		v.SetDefault("sessiontimeoutseconds", 1800)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-Country.mmdb")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("jobintervalseconds", 60)
		v.SetDefault("pageviewretentiondays", 90)
		v.SetDefault("realtimewindowminutes", 5)

		// Bind environment variables
		v.BindEnv("appname", "VISITRA_APP_NAME")
		v.BindEnv("appport", "VISITRA_APP_PORT")
		v.BindEnv("environment", "VISITRA_ENV")
		v.BindEnv("loglevel", "VISITRA_LOG_LEVEL")
		v.BindEnv("saltprefix", "VISITRA_SALT_PREFIX")
		v.BindEnv("sessiontimeoutseconds", "VISITRA_SESSION_TIMEOUT_SECONDS")
		v.BindEnv("storagepath", "VISITRA_STORAGE_PATH")
		v.BindEnv("geodbpath", "VISITRA_GEO_DB_PATH")
		v.BindEnv("logsdir", "VISITRA_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "VISITRA_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "VISITRA_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "VISITRA_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("jobintervalseconds", "VISITRA_JOB_INTERVAL_SECONDS")
		v.BindEnv("pageviewretentiondays", "VISITRA_PAGEVIEW_RETENTION_DAYS")
		v.BindEnv("realtimewindowminutes", "VISITRA_REALTIME_WINDOW_MINUTES")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session timeout must be positive: %d", c.SessionTimeoutSeconds)
	}

	return nil
}

// GetStorePath returns the badger database directory based on environment
func (c *Config) GetStorePath() string {
	return filepath.Join(c.StoragePath, fmt.Sprintf("%s-%s", c.AppName, c.Environment))
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetSessionTimeout returns the analytics session timeout in seconds.
// Used for visitor session affinity (when a visitor's session expires after inactivity).
func (c *Config) GetSessionTimeout() int {
	return c.SessionTimeoutSeconds
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
