package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AppEnv      string
	BaseURL     string
	LogLevel    string

	CacheBackend    string
	CacheMaxEntries int
	CacheTTL        time.Duration
	RedisURL        string

	SlugStrategy  string
	SlugLength    int
	SnowflakeNode int64

	CounterWorkers   int
	CounterQueueSize int
	CounterTimeout   time.Duration

	CORSAllowedOrigin string
	ShutdownTimeout   time.Duration
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:      getEnv("APP_ENV", "local"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		CacheBackend:    getEnv("CACHE_BACKEND", "memory"),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
		CacheTTL:        getEnvDuration("CACHE_TTL", 0),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),

		SlugStrategy:  getEnv("SLUG_STRATEGY", "random"),
		SlugLength:    getEnvInt("SLUG_LENGTH", 8),
		SnowflakeNode: int64(getEnvInt("SNOWFLAKE_NODE", 1)),

		CounterWorkers:   getEnvInt("COUNTER_WORKERS", 4),
		CounterQueueSize: getEnvInt("COUNTER_QUEUE_SIZE", 4096),
		CounterTimeout:   getEnvDuration("COUNTER_TIMEOUT", 5*time.Second),

		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
