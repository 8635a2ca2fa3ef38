package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	BackendURL              string        `mapstructure:"BACKEND_URL"`
	WebPort                 int           `mapstructure:"WEB_PORT"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout          time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRetries              int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds       time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	BackoffMaxSeconds       time.Duration `mapstructure:"BACKOFF_MAX_SECONDS"`
	BackoffJitterRatio      float64       `mapstructure:"BACKOFF_JITTER_RATIO"`
	LargeDatasetBytes       int64         `mapstructure:"LARGE_DATASET_BYTES"`
	StillWorkingDelay       time.Duration `mapstructure:"STILL_WORKING_DELAY_MS"`
	MaxSessions             int           `mapstructure:"MAX_SESSIONS"`
	DirectorsCutCacheSize   int           `mapstructure:"DIRECTORS_CUT_CACHE_SIZE"`
	RateLimitMessagesPerMin int           `mapstructure:"RATE_LIMIT_MESSAGES_PER_MIN"`
	RateLimitBurstSize      int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
	RateLimitCleanup        time.Duration `mapstructure:"RATE_LIMIT_CLEANUP_MINUTES"`
	SessionMaxIdle          time.Duration `mapstructure:"SESSION_MAX_IDLE_MINUTES"`
	SessionCleanupInterval  time.Duration `mapstructure:"SESSION_CLEANUP_MINUTES"`
	TracingEnabled          bool          `mapstructure:"TRACING_ENABLED"`
}

// Load reads config.yaml (if any) and the environment. An explicit file path
// takes precedence over the search path.
func Load(logger *zap.Logger, file ...string) *Config {
	var config Config
	v := viper.New()
	if len(file) > 0 && file[0] != "" {
		v.SetConfigFile(file[0])
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")        // For running locally
		v.AddConfigPath("../")      // For running from docker subdir
		v.AddConfigPath("./config") // Common config folder
	}
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("WEB_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", 120)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_DELAY_SECONDS", 1)
	v.SetDefault("BACKOFF_MAX_SECONDS", 10)
	v.SetDefault("BACKOFF_JITTER_RATIO", 0.1)
	v.SetDefault("LARGE_DATASET_BYTES", 20*1024*1024)
	v.SetDefault("STILL_WORKING_DELAY_MS", 1000)
	v.SetDefault("MAX_SESSIONS", 256)
	v.SetDefault("DIRECTORS_CUT_CACHE_SIZE", 8)
	v.SetDefault("RATE_LIMIT_MESSAGES_PER_MIN", 30)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 5)
	v.SetDefault("RATE_LIMIT_CLEANUP_MINUTES", 10)
	v.SetDefault("SESSION_MAX_IDLE_MINUTES", 60)
	v.SetDefault("SESSION_CLEANUP_MINUTES", 5)
	v.SetDefault("TRACING_ENABLED", false)

	if err := v.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.BackendURL = strings.TrimRight(strings.TrimSpace(config.BackendURL), "/")

	// Convert seconds/milliseconds/minutes to proper time.Duration
	config.RequestTimeout = config.RequestTimeout * time.Second
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.BackoffMaxSeconds = config.BackoffMaxSeconds * time.Second
	config.StillWorkingDelay = config.StillWorkingDelay * time.Millisecond
	config.RateLimitCleanup = config.RateLimitCleanup * time.Minute
	config.SessionMaxIdle = config.SessionMaxIdle * time.Minute
	config.SessionCleanupInterval = config.SessionCleanupInterval * time.Minute

	config.normalize()
	return &config
}

// normalize replaces unusable values with the defaults the rest of the code
// relies on.
func (c *Config) normalize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.MaxSessions < 1 {
		c.MaxSessions = 1
	}
	if c.DirectorsCutCacheSize < 1 {
		c.DirectorsCutCacheSize = 1
	}
	if c.RateLimitCleanup <= 0 {
		c.RateLimitCleanup = 10 * time.Minute
	}
	if c.SessionMaxIdle <= 0 {
		c.SessionMaxIdle = time.Hour
	}
	if c.SessionCleanupInterval <= 0 {
		c.SessionCleanupInterval = 5 * time.Minute
	}
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	c := &Config{
		BackendURL:              "http://localhost:8000",
		WebPort:                 8080,
		LogLevel:                "info",
		RequestTimeout:          120 * time.Second,
		MaxRetries:              3,
		RetryDelaySeconds:       time.Second,
		BackoffMaxSeconds:       10 * time.Second,
		BackoffJitterRatio:      0.1,
		LargeDatasetBytes:       20 * 1024 * 1024,
		StillWorkingDelay:       time.Second,
		MaxSessions:             256,
		DirectorsCutCacheSize:   8,
		RateLimitMessagesPerMin: 30,
		RateLimitBurstSize:      5,
		RateLimitCleanup:        10 * time.Minute,
		SessionMaxIdle:          time.Hour,
		SessionCleanupInterval:  5 * time.Minute,
	}
	c.normalize()
	return c
}
