package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables that supply flag defaults.
const (
	EnvName        = "CHAT_NAME"
	EnvPort        = "CHAT_PORT"
	EnvIdleTimeout = "CHAT_IDLE_TIMEOUT"
	EnvNATSURL     = "NATS_URL"
	EnvRedisURL    = "REDIS_URL"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
