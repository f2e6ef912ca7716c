package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	WorkerCount int
	DatabaseURL string

	// Template engine
	TemplateCacheSize int

	// Admin auth
	AdminJWTSecret string

	// CORS
	CORSAllowedOrigins []string

	// Redis (template record cache)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	TemplateTTL   time.Duration

	// AWS (broadcast queue + job status)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BroadcastQueueURL   string
	BroadcastJobsTable  string

	// SMS delivery (Sparrow SMS gateway)
	SMSProvider     string
	SparrowToken    string
	SparrowFrom     string
	SparrowBaseURL  string
	DeliveryTimeout time.Duration

	// Email delivery
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		WorkerCount: getEnvAsInt("WORKER_COUNT", 4),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		TemplateCacheSize: getEnvAsInt("TEMPLATE_CACHE_SIZE", 512),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		TemplateTTL:   getEnvAsDuration("TEMPLATE_RECORD_TTL", 10*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BroadcastQueueURL:   getEnv("BROADCAST_QUEUE_URL", ""),
		BroadcastJobsTable:  getEnv("BROADCAST_JOBS_TABLE", "broadcast_jobs"),

		SMSProvider:     strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "log"))),
		SparrowToken:    getEnv("SPARROW_SMS_TOKEN", ""),
		SparrowFrom:     getEnv("SPARROW_SMS_FROM", ""),
		SparrowBaseURL:  getEnv("SPARROW_SMS_BASE_URL", "https://api.sparrowsms.com/v2"),
		DeliveryTimeout: getEnvAsDuration("DELIVERY_TIMEOUT", 10*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Sampark"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Sampark"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty
// entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
