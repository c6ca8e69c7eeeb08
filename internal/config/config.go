package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lock backends for the per-interview generation lock
const (
	LockLocal = "local"
	LockRedis = "redis"
	LockNone  = "none"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var supportedProviders = map[string]bool{"gemini": true, "openai": true}

// app config. Provider credentials are read by the provider packages themselves.
type Config struct {
	Env          string
	Port         string
	Provider     string
	ModelTimeout time.Duration

	DBDriver   string
	Postgres   PostgresConfig
	SQLitePath string

	LockBackend   string
	RedisAddr     string
	LockTTL       time.Duration
	StageCacheTTL time.Duration

	BackfillEnabled  bool
	BackfillSchedule string

	CORSAllowedOrigins []string
}

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     string
	SSLMode  string
}

// DSN builds the connection string gorm's postgres driver expects
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Env:          getEnvOrDefault("APP_ENV", "production"),
		Port:         getEnvOrDefault("PORT", "8080"),
		Provider:     getEnvOrDefault("AI_PROVIDER", "gemini"),
		ModelTimeout: getEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		DBDriver:     getEnvOrDefault("DB_DRIVER", DriverPostgres),
		Postgres: PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath:       getEnvOrDefault("SQLITE_PATH", "interviews.db"),
		LockBackend:      getEnvOrDefault("GENERATION_LOCK", LockLocal),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		LockTTL:          getEnvDuration("GENERATION_LOCK_TTL", 10*time.Minute),
		StageCacheTTL:    getEnvDuration("STAGE_CACHE_TTL", 30*time.Minute),
		BackfillEnabled:  getEnvBool("REPORT_BACKFILL_ENABLED", false),
		BackfillSchedule: getEnvOrDefault("REPORT_BACKFILL_SCHEDULE", "*/10 * * * *"),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS",
			"http://localhost:5173")),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if !supportedProviders[config.Provider] {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini, openai")
	}
	// provider credentials are validated by the provider's own NewConfig()
	switch config.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return errors.New("unsupported DB_DRIVER: " + config.DBDriver)
	}
	switch config.LockBackend {
	case LockLocal, LockNone:
	case LockRedis:
		if config.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when GENERATION_LOCK=redis")
		}
	default:
		return errors.New("unsupported GENERATION_LOCK: " + config.LockBackend)
	}
	if config.ModelTimeout <= 0 {
		return errors.New("MODEL_TIMEOUT must be positive")
	}
	if config.StageCacheTTL <= 0 {
		return errors.New("STAGE_CACHE_TTL must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// unparseable values fall back to the default, like the other getters
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
