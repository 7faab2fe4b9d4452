package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment, with a .env
// file honored in development.
type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseURL string

	// SMTP, used for filing alerts and account notices.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// BaseURL is what links in outbound email point at.
	BaseURL string

	// Blob storage. Local serves development; R2 serves production
	// through presigned URLs only, the bucket is never public.
	StorageProvider   string // "local" or "r2"
	LocalStoragePath  string
	LocalStorageURL   string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Background worker.
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// Court archive provider. "mock" serves canned dockets without
	// network access. Archive tokens are per user, so there is no
	// application-level credential here.
	CourtProvider       string // "courtlistener" or "mock"
	CourtAPIBaseURL     string // override the archive API endpoint (testing)
	CourtStorageBaseURL string // override where archive copies are served from
	CourtMaxRetries     int
	CourtRetryBaseDelay time.Duration
	CourtRequestTimeout time.Duration

	// Service tuning.
	PurchasePollInterval  time.Duration // delay between purchase status checks
	MonitorUpdateInterval time.Duration // delay between monitor sweeps

	// Invite gating for the private beta.
	InviteCodesEnabled bool
	ValidInviteCodes   []string

	// Stripe billing. Empty keys leave billing handlers running as
	// stubs, which is how development works.
	StripeSecretKey                  string
	StripeWebhookSecret              string
	StripeStarterMonthlyPriceID      string
	StripeStarterYearlyPriceID       string
	StripeProfessionalMonthlyPriceID string
	StripeProfessionalYearlyPriceID  string

	// Basic auth on /metrics. Leaving both empty exposes the endpoint,
	// acceptable only behind a private network.
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      env("ENV", "development"),
		Port:     envInt("PORT", 8080),
		LogLevel: env("LOG_LEVEL", "debug"),

		// Mailhog defaults for development.
		SMTPHost:     env("SMTP_HOST", "localhost"),
		SMTPPort:     envInt("SMTP_PORT", 1025),
		SMTPUsername: env("SMTP_USERNAME", ""),
		SMTPPassword: env("SMTP_PASSWORD", ""),
		SMTPFrom:     env("SMTP_FROM", "noreply@docketwatch.io"),
		SMTPFromName: env("SMTP_FROM_NAME", "DocketWatch"),

		BaseURL: env("BASE_URL", "http://localhost:8080"),

		StorageProvider:   env("STORAGE_PROVIDER", "local"),
		LocalStoragePath:  env("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:   env("LOCAL_STORAGE_URL", "http://localhost:8080/files"),
		R2AccountID:       env("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     env("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: env("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      env("R2_BUCKET_NAME", ""),

		WorkerEnabled:      envBool("WORKER_ENABLED", true),
		WorkerConcurrency:  envInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   envDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),

		CourtProvider:       env("COURT_PROVIDER", "mock"),
		CourtAPIBaseURL:     env("COURT_API_BASE_URL", ""),
		CourtStorageBaseURL: env("COURT_STORAGE_BASE_URL", ""),
		CourtMaxRetries:     envInt("COURT_MAX_RETRIES", 3),
		CourtRetryBaseDelay: envDuration("COURT_RETRY_BASE_DELAY", time.Second),
		CourtRequestTimeout: envDuration("COURT_REQUEST_TIMEOUT", 30*time.Second),

		PurchasePollInterval:  envDuration("PURCHASE_POLL_INTERVAL", 2*time.Second),
		MonitorUpdateInterval: envDuration("MONITOR_UPDATE_INTERVAL", 30*time.Second),

		InviteCodesEnabled: envBool("INVITE_CODES_ENABLED", true),
		ValidInviteCodes:   splitCodes(env("VALID_INVITE_CODES", "")),

		StripeSecretKey:                  env("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:              env("STRIPE_WEBHOOK_SECRET", ""),
		StripeStarterMonthlyPriceID:      env("STRIPE_STARTER_MONTHLY_PRICE_ID", ""),
		StripeStarterYearlyPriceID:       env("STRIPE_STARTER_YEARLY_PRICE_ID", ""),
		StripeProfessionalMonthlyPriceID: env("STRIPE_PROFESSIONAL_MONTHLY_PRICE_ID", ""),
		StripeProfessionalYearlyPriceID:  env("STRIPE_PROFESSIONAL_YEARLY_PRICE_ID", ""),

		MetricsUsername: env("METRICS_USERNAME", ""),
		MetricsPassword: env("METRICS_PASSWORD", ""),

		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.StorageProvider {
	case "local":
	case "r2":
		for _, req := range []struct{ name, value string }{
			{"R2_ACCOUNT_ID", c.R2AccountID},
			{"R2_ACCESS_KEY_ID", c.R2AccessKeyID},
			{"R2_SECRET_ACCESS_KEY", c.R2SecretAccessKey},
			{"R2_BUCKET_NAME", c.R2BucketName},
		} {
			if req.value == "" {
				return fmt.Errorf("%s is required when STORAGE_PROVIDER is 'r2'", req.name)
			}
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.CourtProvider != "courtlistener" && c.CourtProvider != "mock" {
		return fmt.Errorf("COURT_PROVIDER must be either 'courtlistener' or 'mock', got: %s", c.CourtProvider)
	}
	return nil
}

// splitCodes parses the comma-separated invite code list. Codes are
// only trimmed here; the invite validator owns normalization.
func splitCodes(raw string) []string {
	if raw == "" {
		return nil
	}
	var codes []string
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
