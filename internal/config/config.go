package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath    string
	Port            string
	Environment     string
	AllowedOrigins  string
	SessionDuration time.Duration
	LogLevel        string

	MailgunDomain      string
	MailgunAPIKey      string
	MailgunSenderEmail string
	MailgunSenderName  string

	MaxOpenConns int
}

func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "storefront.db"),
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "http://localhost:8080"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 7*24*time.Hour),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),

		MailgunDomain:      getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:      getEnv("MAILGUN_API_KEY", ""),
		MailgunSenderEmail: getEnv("MAILGUN_SENDER_EMAIL", "orders@example.com"),
		MailgunSenderName:  getEnv("MAILGUN_SENDER_NAME", "Storefront"),

		MaxOpenConns: getEnvInt("DATABASE_MAX_OPEN_CONNS", 1),
	}
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
