package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "CryptoNode"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
	defaultCurrency      = "BTC"
	defaultInterval      = time.Minute
	defaultRewardRate    = 0.0001
	defaultMinBandwidth  = 1 << 20 // 1 MiB
	defaultShutdownDelay = 10 * time.Second
	defaultIdemTTL       = 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName   string
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	// Optional backends: an absent DatabaseURL selects the in-memory store,
	// an absent RedisURL disables the idempotency middleware.
	DatabaseURL string
	RedisURL    string

	Currency            string
	MeasurementInterval time.Duration
	RewardRate          float64
	MinBandwidth        uint64
	SettingsPath        string

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		Currency:            getEnv("WALLET_CURRENCY", defaultCurrency),
		MeasurementInterval: defaultInterval,
		RewardRate:          defaultRewardRate,
		MinBandwidth:        defaultMinBandwidth,
		SettingsPath:        os.Getenv("SETTINGS_PATH"),
		ShutdownPeriod:      defaultShutdownDelay,
		IdempotencyTTL:      defaultIdemTTL,
	}

	if v := os.Getenv("MEASUREMENT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MEASUREMENT_INTERVAL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("MEASUREMENT_INTERVAL must be positive")
		}
		cfg.MeasurementInterval = d
	}

	if v := os.Getenv("REWARD_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REWARD_RATE: %w", err)
		}
		if rate < 0 {
			return Config{}, fmt.Errorf("REWARD_RATE cannot be negative")
		}
		cfg.RewardRate = rate
	}

	if v := os.Getenv("MIN_BANDWIDTH_BYTES"); v != "" {
		min, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MIN_BANDWIDTH_BYTES: %w", err)
		}
		if min == 0 {
			return Config{}, fmt.Errorf("MIN_BANDWIDTH_BYTES cannot be zero")
		}
		cfg.MinBandwidth = min
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
