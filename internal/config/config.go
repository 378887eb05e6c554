package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// App
	Port string
	Env  string

	// Storage
	DatabasePath string
	MaxOpenConns int

	// Query limits
	MaxPageSize    uint64
	MaxFilterDepth int
	DefaultTopK    uint64
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/biokg.db"),
		MaxOpenConns:   getEnvInt("MAX_OPEN_CONNS", 5),
		MaxPageSize:    uint64(getEnvInt("MAX_PAGE_SIZE", 100)),
		MaxFilterDepth: getEnvInt("MAX_FILTER_DEPTH", 16),
		DefaultTopK:    uint64(getEnvInt("DEFAULT_TOPK", 10)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are sane.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be at least 1")
	}
	if c.MaxFilterDepth < 1 {
		return fmt.Errorf("MAX_FILTER_DEPTH must be at least 1")
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("DEFAULT_TOPK must be at least 1")
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}
