package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	R2       R2Config
	Email    EmailConfig
	Stripe   StripeConfig
	Sentry   SentryConfig
	Features FeatureConfig
}

type ServerConfig struct {
	Port       string
	AppBaseURL string
	// APIBaseURL prefixes the URLs of locally stored media.
	APIBaseURL string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type R2Config struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// Enabled reports whether uploads can go to R2. Without it media is kept
// on local disk under LocalDir.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PricePro      string
	PriceElite    string
}

type SentryConfig struct {
	DSN         string
	Environment string
}

type FeatureConfig struct {
	CronEnabled       bool
	FeedSourceTimeout time.Duration
	ExpiryWindowDays  int
	LocalMediaDir     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	return &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "3000"),
			AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:5173"),
			APIBaseURL: getEnv("API_BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "ptmanager-dev-secret"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		R2: R2Config{
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("R2_ACCESS_KEY", ""),
			SecretKey: getEnv("R2_SECRET_KEY", ""),
			Bucket:    getEnv("R2_BUCKET_NAME", ""),
			PublicURL: getEnv("R2_PUBLIC_URL", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "PT Manager Pro <noreply@ptmanager.app>"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PricePro:      getEnv("STRIPE_PRICE_PRO", ""),
			PriceElite:    getEnv("STRIPE_PRICE_ELITE", ""),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
		},
		Features: FeatureConfig{
			CronEnabled:       getEnvBool("CRON_ENABLED", true),
			FeedSourceTimeout: getEnvDuration("FEED_SOURCE_TIMEOUT", 8*time.Second),
			ExpiryWindowDays:  getEnvInt("EXPIRY_WINDOW_DAYS", 15),
			LocalMediaDir:     getEnv("LOCAL_MEDIA_DIR", "./uploads"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
