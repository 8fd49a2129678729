package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	Port string

	// Redis cache store.
	RedisAddr     string `validate:"required"`
	RedisPassword string

	// Postgres DSN for sessions and history.
	DatabaseDSN string `validate:"required"`

	// Directory holding log_*.log and exception_*.log files.
	LogDir string `validate:"required"`

	// Static token for the history endpoint.
	AuthToken string `validate:"required"`

	// Open-Meteo upstreams.
	OpenMeteoAPIURL       string `validate:"required,url"`
	OpenMeteoGeocodingURL string `validate:"required,url"`

	// Timeout for outbound upstream calls.
	HTTPTimeout time.Duration

	// Session cookie.
	SessionCookieName string
	SessionExpiryDays int

	// Response cache TTLs in seconds.
	CacheExpire     int
	CacheExpireList int

	// Log cleanup job.
	CleanupInterval  time.Duration
	LogRetentionDays int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:          getenvDefault("PORT", "8080"),
		RedisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		LogDir:        getenvDefault("LOG_DIR", "logs"),
		AuthToken:     os.Getenv("AUTH_TOKEN"),

		OpenMeteoAPIURL:       getenvDefault("OPENMETEO_API_URL", "https://api.open-meteo.com/v1"),
		OpenMeteoGeocodingURL: getenvDefault("OPENMETEO_GEOCODING_API_URL", "https://geocoding-api.open-meteo.com/v1"),

		SessionCookieName: getenvDefault("SESSION_COOKIE_NAME", "Session"),
		SessionExpiryDays: getenvInt("SESSION_EXPIRY_DAYS", 7),

		CacheExpire:     getenvInt("CACHE_EXPIRE", 300),
		CacheExpireList: getenvInt("CACHE_EXPIRE_LIST", 3600),

		LogRetentionDays: getenvInt("LOG_RETENTION_DAYS", 30),
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	intervalStr := getenvDefault("CLEANUP_INTERVAL", "5m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL: %w", err)
	}
	cfg.CleanupInterval = interval

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
