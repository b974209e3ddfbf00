package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Payment gateway configuration
	GatewayProvider   string
	GatewayBaseURL    string
	GatewayAPIKey     string
	GatewayMerchantID string
	Currency          string

	// Workflow / email integrations
	WorkflowWebhookURL string
	EmailAPIURL        string
	EmailAPIKey        string
	EmailSender        string

	// Booking configuration
	ReservationTTL   time.Duration
	PaymentPollLimit time.Duration
	AdmissionLead    time.Duration
	ExpirySweep      time.Duration

	// Admin auth
	AdminJWTSecret string
	AdminTokenTTL  time.Duration

	// Rate limiting
	ReserveRatePerMinute int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Gateway
		GatewayProvider:   getEnv("GATEWAY_PROVIDER", "mock"),
		GatewayBaseURL:    getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		GatewayMerchantID: getEnv("GATEWAY_MERCHANT_ID", ""),
		Currency:          getEnv("CURRENCY", "EUR"),

		// Integrations
		WorkflowWebhookURL: getEnv("WORKFLOW_WEBHOOK_URL", ""),
		EmailAPIURL:        getEnv("EMAIL_API_URL", ""),
		EmailAPIKey:        getEnv("EMAIL_API_KEY", ""),
		EmailSender:        getEnv("EMAIL_SENDER", "tickets@example.com"),

		// Booking
		ReservationTTL:   getEnvAsDuration("RESERVATION_TTL", "15m"),
		PaymentPollLimit: getEnvAsDuration("PAYMENT_POLL_LIMIT", "10m"),
		AdmissionLead:    getEnvAsDuration("ADMISSION_LEAD", "2h"),
		ExpirySweep:      getEnvAsDuration("EXPIRY_SWEEP", "1m"),

		// Admin auth
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:  getEnvAsDuration("ADMIN_TOKEN_TTL", "12h"),

		// Rate limiting
		ReserveRatePerMinute: getEnvAsInt("RESERVE_RATE_PER_MINUTE", 30),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
