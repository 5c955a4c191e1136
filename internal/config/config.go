package config

import (
	"os"
	"strconv"
	"time"

	"turnstile/internal/database"
	"turnstile/internal/external"
	"turnstile/internal/messaging"
	"turnstile/internal/queue"
)

// ReservationConfig tunes pending-hold expiry
type ReservationConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database      database.Config
	NATS          messaging.Config
	Queue         queue.Config
	Reservation   ReservationConfig
	Ticketing     external.TicketingConfig
	Notification  external.NotificationConfig
	Elasticsearch ElasticsearchConfig
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		Database: database.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "turnstile"),
			Password:        getEnv("DB_PASSWORD", "turnstile123"),
			DBName:          getEnv("DB_NAME", "turnstile"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "turnstile"),
			ClientID:  getEnv("NATS_CLIENT_ID", "turnstile-api"),
		},

		Queue: queue.Config{
			MaxConcurrentBuyers: getEnvInt("QUEUE_MAX_CONCURRENT_BUYERS", 25),
			AdmissionTTL:        getEnvDuration("QUEUE_ADMISSION_TTL", 5*time.Minute),
			TickInterval:        getEnvDuration("QUEUE_TICK_INTERVAL", time.Second),
		},

		Reservation: ReservationConfig{
			TTL:           getEnvDuration("RESERVATION_TTL", 10*time.Minute),
			SweepInterval: getEnvDuration("RESERVATION_SWEEP_INTERVAL", 30*time.Second),
		},

		Ticketing: external.TicketingConfig{
			BaseURL: getEnv("TICKETING_SERVICE_URL", "http://localhost:8090"),
			Timeout: getEnvDuration("TICKETING_TIMEOUT", 10*time.Second),
		},

		Notification: external.NotificationConfig{
			BaseURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8091"),
			Timeout: getEnvDuration("NOTIFICATION_TIMEOUT", 10*time.Second),
		},

		Elasticsearch: LoadElasticsearchConfig(),
	}
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration reads a duration environment variable ("30s", "5m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
