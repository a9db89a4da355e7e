package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/warp/roster-engine/pay"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Holidays  HolidayConfig
	AutoClose AutoCloseConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string
}

// HolidayConfig holds calendar configuration. ConfigPath is a YAML/JSON
// holiday document, empty for the embedded defaults. DefaultState overrides
// the document's default_state when set.
type HolidayConfig struct {
	ConfigPath   string
	DefaultState string
	TimeZone     string
	CacheSize    int
}

type AutoCloseConfig struct {
	MaxHours int
	Interval time.Duration
	RateMode string
	Enabled  bool
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}

	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Database = DatabaseConfig{
		Path: getEnv("DB_PATH", "roster.db"),
	}

	// Holiday configuration
	cacheSize, err := strconv.Atoi(getEnv("HOLIDAY_CACHE_SIZE", "64"))
	if err != nil {
		return nil, fmt.Errorf("invalid HOLIDAY_CACHE_SIZE: %w", err)
	}

	config.Holidays = HolidayConfig{
		ConfigPath:   getEnv("HOLIDAY_CONFIG", ""),
		DefaultState: strings.ToUpper(strings.TrimSpace(getEnv("DEFAULT_STATE", ""))),
		TimeZone:     getEnv("TIMEZONE", "Australia/Hobart"),
		CacheSize:    cacheSize,
	}

	// Auto-close configuration
	maxHours, err := strconv.Atoi(getEnv("AUTO_CLOSE_MAX_HOURS", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_CLOSE_MAX_HOURS: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("AUTO_CLOSE_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_CLOSE_INTERVAL: %w", err)
	}
	enabled, err := strconv.ParseBool(getEnv("AUTO_CLOSE_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_CLOSE_ENABLED: %w", err)
	}

	config.AutoClose = AutoCloseConfig{
		MaxHours: maxHours,
		Interval: interval,
		RateMode: getEnv("AUTO_CLOSE_RATE_MODE", string(pay.AutoCloseWeekdayRate)),
		Enabled:  enabled,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT %d out of range", c.App.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Holidays.CacheSize <= 0 {
		return fmt.Errorf("HOLIDAY_CACHE_SIZE must be positive")
	}
	if c.AutoClose.MaxHours <= 0 {
		return fmt.Errorf("AUTO_CLOSE_MAX_HOURS must be positive")
	}
	if c.AutoClose.Interval <= 0 {
		return fmt.Errorf("AUTO_CLOSE_INTERVAL must be positive")
	}
	if _, err := pay.ParseRateMode(c.AutoClose.RateMode); err != nil {
		return fmt.Errorf("invalid AUTO_CLOSE_RATE_MODE: %w", err)
	}
	return nil
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Holidays.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Holidays.TimeZone, err)
	}
	return loc, nil
}

// AutoClosePolicy builds the pay policy from the auto-close settings.
func (c *Config) AutoClosePolicy() pay.AutoClosePolicy {
	mode, err := pay.ParseRateMode(c.AutoClose.RateMode)
	if err != nil {
		mode = pay.AutoCloseWeekdayRate
	}
	return pay.AutoClosePolicy{
		MaxDuration: time.Duration(c.AutoClose.MaxHours) * time.Hour,
		Mode:        mode,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
