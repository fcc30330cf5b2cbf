package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default. Without DATABASE_URL the dealer
// directory is served from the built-in seed data.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        zapcore.Level

	// Database (optional)
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Offline queue
	QueueDBPath       string
	DiagnosisQueueKey string
	SyncRetryInterval time.Duration

	// Connectivity probe; an empty URL means always online
	ConnectivityProbeURL string
	ConnectivityInterval time.Duration

	// Diagnosis model
	GeminiAPIKey        string
	GeminiModel         string
	DiagnosisRatePerSec float64

	// Sync notifications
	NotifyWebhookURL string
	NotifyTimeout    time.Duration

	// Simulated backend latency of marketplace lookups
	SearchLatency     time.Duration
	SubstituteLatency time.Duration
}

func Load() (*Config, error) {
	level, err := zapcore.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zapcore.InfoLevel
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        level,

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 2)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		QueueDBPath:       getEnv("QUEUE_DB_PATH", "agrolink-queue.db"),
		DiagnosisQueueKey: getEnv("DIAGNOSIS_QUEUE_KEY", "diagnosis_queue"),
		SyncRetryInterval: getDuration("SYNC_RETRY_INTERVAL", 30*time.Second),

		ConnectivityProbeURL: os.Getenv("CONNECTIVITY_PROBE_URL"),
		ConnectivityInterval: getDuration("CONNECTIVITY_INTERVAL", 10*time.Second),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		DiagnosisRatePerSec: getFloat("DIAGNOSIS_RATE_PER_SEC", 1),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyTimeout:    getDuration("NOTIFY_TIMEOUT", 10*time.Second),

		SearchLatency:     getDuration("SEARCH_LATENCY", 700*time.Millisecond),
		SubstituteLatency: getDuration("SUBSTITUTE_LATENCY", 500*time.Millisecond),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
