// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	GeminiAPIKey string
	GeminiModel  string

	// SingleUser disables authentication: every request runs as the
	// fixed local user and logout directives are ignored.
	SingleUser bool

	NotifyDir string
	GuestTTL  time.Duration
	SweepSpec string

	Timing TimingConfig
}

// TimingConfig holds the interaction state machine delays.
type TimingConfig struct {
	Authenticating time.Duration
	Boot           time.Duration
	Searching      time.Duration
	AutoRevert     time.Duration
	Alert          time.Duration
	ResetClear     time.Duration
	Logout         time.Duration
	SleepStage     time.Duration
	Observe        time.Duration
	DeepThreshold  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/orion.db"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),
		SingleUser:   getEnvBool("ORION_SINGLE_USER", false),
		NotifyDir:    getEnv("NOTIFY_SPOOL_DIR", "./data/notifications"),
		GuestTTL:     getEnvDuration("GUEST_TTL", 24*time.Hour),
		SweepSpec:    getEnv("SWEEP_SCHEDULE", "@every 1h"),
		Timing: TimingConfig{
			Authenticating: getEnvDuration("TIMING_AUTHENTICATING", 1500*time.Millisecond),
			Boot:           getEnvDuration("TIMING_BOOT", 2500*time.Millisecond),
			Searching:      getEnvDuration("TIMING_SEARCHING", 1800*time.Millisecond),
			AutoRevert:     getEnvDuration("TIMING_AUTO_REVERT", 3*time.Second),
			Alert:          getEnvDuration("TIMING_ALERT", 4*time.Second),
			ResetClear:     getEnvDuration("TIMING_RESET_CLEAR", 1500*time.Millisecond),
			Logout:         getEnvDuration("TIMING_LOGOUT", 2500*time.Millisecond),
			SleepStage:     getEnvDuration("TIMING_SLEEP_STAGE", 30*time.Second),
			Observe:        getEnvDuration("TIMING_OBSERVE", 45*time.Second),
			DeepThreshold:  getEnvInt("DEEP_THRESHOLD", 8),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY cannot be empty")
	}
	if c.NotifyDir == "" {
		return fmt.Errorf("NOTIFY_SPOOL_DIR cannot be empty")
	}
	if c.GuestTTL <= 0 {
		return fmt.Errorf("GUEST_TTL must be > 0")
	}
	if c.Timing.DeepThreshold <= 0 {
		return fmt.Errorf("DEEP_THRESHOLD must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
