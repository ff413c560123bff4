package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string
	LogLevel string

	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Optimizer OptimizerConfig

	RedisURL      string
	CycleLeaseTTL time.Duration

	AMQPURL         string
	AMQPEventsQueue string

	MockPublishFailureRate float64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SchedulerConfig struct {
	Enabled           bool
	Interval          time.Duration
	PublishTimeout    time.Duration
	MaxInFlight       int
	PostWorkers       int
	PublishRatePerSec int
}

type OptimizerConfig struct {
	Staleness  time.Duration
	Lookback   time.Duration
	TopK       int
	SearchDays int
}

// LoadEnv loads .env files if present. Missing files are not an error.
func LoadEnv(logger logrus.FieldLogger) {
	files := []string{".env", ".env.local"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Info("⚠️ No .env file found, relying on OS environment variables")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// Load reads the process environment into a Config.
func Load() Config {
	return Config{
		HTTPPort: GetEnv("HTTP_PORT", "8080"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:             databaseURL(),
			MaxOpenConns:    GetEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    GetEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:           GetEnvBool("SCHEDULER_ENABLED", true),
			Interval:          GetEnvDuration("SCHEDULER_INTERVAL", 5*time.Minute),
			PublishTimeout:    GetEnvDuration("PUBLISH_TIMEOUT", 30*time.Second),
			MaxInFlight:       GetEnvInt("PUBLISH_MAX_IN_FLIGHT", 4),
			PostWorkers:       GetEnvInt("DISPATCH_POST_WORKERS", 2),
			PublishRatePerSec: GetEnvInt("PUBLISH_RATE_PER_SEC", 5),
		},
		Optimizer: OptimizerConfig{
			Staleness:  GetEnvDuration("OPTIMIZER_STALENESS", 24*time.Hour),
			Lookback:   GetEnvDuration("OPTIMIZER_LOOKBACK", 90*24*time.Hour),
			TopK:       GetEnvInt("OPTIMIZER_TOP_K", 3),
			SearchDays: GetEnvInt("AGGREGATOR_SEARCH_DAYS", 14),
		},
		RedisURL:               GetEnv("REDIS_URL", ""),
		CycleLeaseTTL:          GetEnvDuration("CYCLE_LEASE_TTL", 10*time.Minute),
		AMQPURL:                GetEnv("AMQP_URL", ""),
		AMQPEventsQueue:        GetEnv("AMQP_EVENTS_QUEUE", "post_events"),
		MockPublishFailureRate: GetEnvFloat("MOCK_PUBLISH_FAILURE_RATE", 0),
	}
}

// Validate rejects settings the scheduler cannot run with.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required (DATABASE_URL or DB_* variables)")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.Scheduler.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive")
	}
	if c.Scheduler.MaxInFlight <= 0 || c.Scheduler.PostWorkers <= 0 {
		return fmt.Errorf("PUBLISH_MAX_IN_FLIGHT and DISPATCH_POST_WORKERS must be positive")
	}
	if c.Optimizer.TopK <= 0 || c.Optimizer.SearchDays <= 0 {
		return fmt.Errorf("OPTIMIZER_TOP_K and AGGREGATOR_SEARCH_DAYS must be positive")
	}
	if c.MockPublishFailureRate < 0 || c.MockPublishFailureRate > 1 {
		return fmt.Errorf("MOCK_PUBLISH_FAILURE_RATE must be within [0,1]")
	}
	return nil
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, os.Getenv("DB_PASSWORD"), GetEnv("DB_HOST", "localhost"), GetEnv("DB_PORT", "5432"), name,
	)
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration accepts Go duration strings ("5m", "30s", "2160h").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}
