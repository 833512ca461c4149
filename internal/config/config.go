package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string

	OneBotAPIURL  string
	OneBotWSURL   string
	OneBotToken   string
	WebhookSecret string

	CFAPIURL         string
	CFTimeoutSeconds string
	ProblemSyncHours string

	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string
}

func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "cpbot"),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		OneBotAPIURL:  getEnv("ONEBOT_API_URL", "http://localhost:5700"),
		OneBotWSURL:   getEnv("ONEBOT_WS_URL", ""),
		OneBotToken:   getEnv("ONEBOT_ACCESS_TOKEN", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		CFAPIURL:         getEnv("CF_API_URL", "https://codeforces.com/api"),
		CFTimeoutSeconds: getEnv("CF_TIMEOUT_SECONDS", "10"),
		ProblemSyncHours: getEnv("PROBLEM_SYNC_HOURS", "24"),

		JWTSecret:         getEnv("JWT_SECRET", "super-secret-key-change-me"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
