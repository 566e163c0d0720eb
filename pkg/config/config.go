package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// External APIs
	Finnhub     FinnhubConfig
	Marketstack MarketstackConfig

	// Optional persistence for holdings. Empty URL keeps the in-memory store.
	Database DatabaseConfig

	// Caching and deduplication
	Cache CacheConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// FinnhubConfig holds Finnhub quote API configuration.
type FinnhubConfig struct {
	APIKey  string
	BaseURL string

	// Sliding-window call budget shared by every Finnhub request.
	RateLimit  int
	RateWindow time.Duration
}

// MarketstackConfig holds Marketstack historical-data API configuration.
type MarketstackConfig struct {
	APIKey  string
	BaseURL string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig holds TTLs for the in-memory caches.
type CacheConfig struct {
	HistoryTTL time.Duration // historical price datasets
	ResultTTL  time.Duration // optimization results
	QuoteTTL   time.Duration // live quotes
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Finnhub: FinnhubConfig{
			APIKey:     getEnv("FINNHUB_API_KEY", ""),
			BaseURL:    getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			RateLimit:  getEnvAsInt("FINNHUB_RATE_LIMIT", 60),
			RateWindow: getEnvAsDuration("FINNHUB_RATE_WINDOW", "60s"),
		},

		Marketstack: MarketstackConfig{
			APIKey:  getEnv("MARKETSTACK_API_KEY", ""),
			BaseURL: getEnv("MARKETSTACK_BASE_URL", "https://api.marketstack.com/v1"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Cache: CacheConfig{
			HistoryTTL: getEnvAsDuration("HISTORY_CACHE_TTL", "1h"),
			ResultTTL:  getEnvAsDuration("RESULT_CACHE_TTL", "5m"),
			QuoteTTL:   getEnvAsDuration("QUOTE_CACHE_TTL", "5m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Finnhub.RateLimit <= 0 {
		return fmt.Errorf("FINNHUB_RATE_LIMIT must be positive")
	}
	if c.Finnhub.RateWindow <= 0 {
		return fmt.Errorf("FINNHUB_RATE_WINDOW must be positive")
	}

	return nil
}

// UsePostgres reports whether holdings should be persisted to PostgreSQL.
func (c *Config) UsePostgres() bool {
	return c.Database.URL != ""
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
