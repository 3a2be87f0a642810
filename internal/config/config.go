package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr   string
	GinMode    string
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	RedisAddr  string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// SMSProvider selects the SMS delivery backend: console, twilio, aws_sns.
	SMSProvider string
	EmailFrom   string

	// StrictTaskTransitions locks completed/cancelled tasks against further
	// status changes. Off by default to match the historical behavior of
	// accepting any valid status from any prior state.
	StrictTaskTransitions bool

	WorkerConcurrency int
	LogLevel          string
}

func Load() *Config {
	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "synergy"),
		DBPassword: getEnv("DB_PASSWORD", "synergy"),
		DBName:     getEnv("DB_NAME", "synergysphere"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),

		JWTSecret:       getEnv("JWT_SECRET", "default-secret-key-change-me"),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SMSProvider: getEnv("SMS_PROVIDER", "console"),
		EmailFrom:   getEnv("EMAIL_FROM", "noreply@synergysphere.local"),

		StrictTaskTransitions: getBoolEnv("TASK_STRICT_TRANSITIONS", false),

		WorkerConcurrency: getIntEnv("WORKER_CONCURRENCY", 10),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
