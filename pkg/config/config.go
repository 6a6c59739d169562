package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Model artifact
	Model ModelConfig

	// Training input
	Orders OrdersConfig

	// Training hyper-parameters file (YAML)
	TrainingConfigPath string

	// Scheduled retraining (cron spec)
	RetrainSchedule string

	// Database (optional: postgres order source and run history)
	Database DatabaseConfig

	// Redis (optional prediction cache)
	Redis RedisConfig

	// In-process prediction cache, used when Redis is disabled
	MemoryCache MemoryCacheConfig

	// Rate limiting for /predict
	RateLimit RateLimitConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// ModelConfig holds artifact location settings
type ModelConfig struct {
	// Path is MODEL_PATH. Empty means "search DefaultModelPaths".
	Path  string
	Watch bool // reload the artifact when the file changes
}

// DefaultModelPaths are searched in order when MODEL_PATH is not set
var DefaultModelPaths = []string{
	"delivery_delay_model.bin",
	"model/delivery_delay_model.bin",
	"../delivery_delay_model.bin",
	"../model/delivery_delay_model.bin",
}

// OrdersConfig holds raw order input settings
type OrdersConfig struct {
	Path      string
	Delimiter rune
	Encoding  string // IANA name: utf-8, iso-8859-1, windows-1252, utf-16 ...
	Table     string // postgres table for the postgres source
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// MemoryCacheConfig holds in-process cache settings
type MemoryCacheConfig struct {
	Enabled    bool
	MaxEntries int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RateLimitConfig holds token bucket settings for the prediction endpoint
type RateLimitConfig struct {
	RPS   float64 // 0 disables limiting
	Burst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		Model: ModelConfig{
			Path:  getEnv("MODEL_PATH", ""),
			Watch: getEnvAsBool("MODEL_WATCH", false),
		},

		Orders: OrdersConfig{
			Path:      getEnv("ORDERS_PATH", "ecommerce_orders_clean.csv"),
			Delimiter: getEnvAsRune("ORDERS_DELIMITER", ','),
			Encoding:  getEnv("ORDERS_ENCODING", "utf-8"),
			Table:     getEnv("ORDERS_TABLE", "orders"),
		},

		TrainingConfigPath: getEnv("TRAINING_CONFIG", ""),
		RetrainSchedule:    getEnv("RETRAIN_SCHEDULE", "@weekly"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "10m"),
		},

		MemoryCache: MemoryCacheConfig{
			Enabled:    getEnvAsBool("MEMORY_CACHE_ENABLED", true),
			MaxEntries: getEnvAsInt("MEMORY_CACHE_MAX_ENTRIES", 10000),
		},

		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 50),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 100),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	return nil
}

// ModelSearchPaths returns the candidate artifact locations in priority order.
// An explicit MODEL_PATH is the only candidate.
func (c *Config) ModelSearchPaths() []string {
	if c.Model.Path != "" {
		return []string{c.Model.Path}
	}
	paths := make([]string, len(DefaultModelPaths))
	copy(paths, DefaultModelPaths)
	return paths
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsRune reads a single-character value; "\t" and "tab" mean a tab
func getEnvAsRune(key string, defaultValue rune) rune {
	valueStr := os.Getenv(key)
	switch strings.ToLower(valueStr) {
	case "":
		return defaultValue
	case `\t`, "tab":
		return '\t'
	}

	runes := []rune(valueStr)
	if len(runes) != 1 {
		return defaultValue
	}
	return runes[0]
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
