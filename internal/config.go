package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Application base URL
	BaseURL string

	// Single-user login. AuthPassword is hashed at startup when no
	// AuthPasswordHash (bcrypt) is given.
	AuthUsername     string
	AuthPasswordHash string
	AuthPassword     string
	SessionTTL       time.Duration

	// Mail relay: "smtp" or "sendgrid". Missing credentials are not a
	// startup error; sends report "Email service not configured".
	MailProvider string

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTimeout  time.Duration

	// SendGrid Configuration
	SendGridAPIKey string

	// Business identity printed on documents and email signatures
	BusinessName         string
	BusinessHeadquarters string
	BusinessShowroom     string
	BusinessAddress      string
	BusinessPhone        string
	BusinessEmail        string

	// PDFFontPath is an optional UTF-8 TrueType font so the rupee sign
	// renders in PDFs. Without it amounts are prefixed with "Rs.".
	PDFFontPath string

	// Storage Configuration (letterhead logo)
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Region          string
	R2Endpoint        string // Optional S3-compatible endpoint override

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		AuthUsername:     getEnv("AUTH_USERNAME", "admin"),
		AuthPasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		AuthPassword:     getEnv("AUTH_PASSWORD", ""),
		SessionTTL:       getEnvDuration("SESSION_TTL", 12*time.Hour),

		MailProvider: getEnv("MAIL_PROVIDER", "smtp"),

		// SMTP defaults to Gmail with STARTTLS
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),
		SMTPTimeout:  getEnvDuration("SMTP_TIMEOUT", 30*time.Second),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		BusinessName:         getEnv("BUSINESS_NAME", "Our Own Marble House"),
		BusinessHeadquarters: getEnv("BUSINESS_HEADQUARTERS", ""),
		BusinessShowroom:     getEnv("BUSINESS_SHOWROOM", ""),
		BusinessAddress:      getEnv("BUSINESS_ADDRESS", ""),
		BusinessPhone:        getEnv("BUSINESS_PHONE", ""),
		BusinessEmail:        getEnv("BUSINESS_EMAIL", ""),

		PDFFontPath: getEnv("PDF_FONT_PATH", ""),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Region:          getEnv("R2_REGION", "auto"),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if cfg.SMTPFromName == "" {
		cfg.SMTPFromName = cfg.BusinessName
	}
	if cfg.BusinessEmail == "" {
		cfg.BusinessEmail = cfg.SMTPFrom
	}

	// Required
	if cfg.AuthPasswordHash == "" && cfg.AuthPassword == "" {
		return nil, fmt.Errorf("AUTH_PASSWORD_HASH or AUTH_PASSWORD is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got: %s", cfg.SessionTTL)
	}

	// Validate mail provider
	if cfg.MailProvider != "smtp" && cfg.MailProvider != "sendgrid" {
		return nil, fmt.Errorf("MAIL_PROVIDER must be either 'smtp' or 'sendgrid', got: %s", cfg.MailProvider)
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" && cfg.R2Endpoint == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
