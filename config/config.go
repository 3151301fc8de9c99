package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	// MaxFrameBytes caps inbound websocket frames. Shared files travel
	// inline as base64, so the default is generous.
	MaxFrameBytes int64

	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func Load() *Config {
	// A local .env fills in anything not already exported.
	_ = godotenv.Load()

	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	maxFrameMB, err := strconv.ParseInt(getEnv("MAX_FRAME_MB", "50"), 10, 64)
	if err != nil || maxFrameMB <= 0 {
		maxFrameMB = 50
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: origins,
		MaxFrameBytes:  maxFrameMB << 20,
		Redis: RedisConfig{
			// Empty host disables the presence mirror.
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
