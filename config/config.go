package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWebhookFreshness bounds how old a webhook timestamp may be
// before the delivery is rejected as a potential replay.
const DefaultWebhookFreshness = 10 * time.Minute

// DefaultWebhookForwardSlack absorbs clock drift between the gateway
// and this host for timestamps slightly in the future.
const DefaultWebhookForwardSlack = 60 * time.Second

// Config holds all configuration for the application. Gateway
// credentials are injected into the gateway client at startup; handlers
// never read the environment directly.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string
	Port      string
	Env       string
	AppURL    string

	// Cashfree payment gateway
	CashfreeAppID       string
	CashfreeSecretKey   string
	CashfreeEnvironment string // "sandbox" or "production"
	CashfreeWebhookURL  string

	WebhookFreshness    time.Duration
	WebhookForwardSlack time.Duration

	// SMTP for license delivery mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// AppConfig is the loaded configuration for the running process.
var AppConfig *Config

// LoadConfig loads configuration from environment variables. A missing
// .env file is not an error outside development.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		Port:      os.Getenv("PORT"),
		Env:       os.Getenv("ENV"),
		AppURL:    os.Getenv("APP_URL"),

		CashfreeAppID:       os.Getenv("CASHFREE_APP_ID"),
		CashfreeSecretKey:   os.Getenv("CASHFREE_SECRET_KEY"),
		CashfreeEnvironment: os.Getenv("CASHFREE_ENVIRONMENT"),
		CashfreeWebhookURL:  os.Getenv("CASHFREE_WEBHOOK_URL"),

		WebhookFreshness:    DefaultWebhookFreshness,
		WebhookForwardSlack: DefaultWebhookForwardSlack,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
	}

	if v := os.Getenv("WEBHOOK_FRESHNESS_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WEBHOOK_FRESHNESS_MINUTES: %v", err)
		}
		config.WebhookFreshness = time.Duration(minutes) * time.Minute
	}

	config.SMTPPort = 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
		}
		config.SMTPPort = port
	}

	if config.CashfreeSecretKey == "" {
		return nil, fmt.Errorf("CASHFREE_SECRET_KEY is required")
	}

	AppConfig = config
	return config, nil
}
