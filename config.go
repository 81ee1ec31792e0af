package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"checkout-service/database"
	aws_pkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string

	OrderAPIURL     string
	OrderAPITimeout time.Duration
	JWTSecret       string

	RedisURL         string
	CartTTL          time.Duration
	LocationCacheTTL time.Duration

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	SubmitLockTTL        time.Duration
	SubmitRatePerMinute  int
	MaxProofSize         int64

	Postgres database.PostgresConfig

	UseSecrets         bool
	ProofBucket        string
	ProofLinkTTL       time.Duration
	ProofRecoveryQueue string
	ProofRecoveryDelay time.Duration
	SNSTopicARN        string
	MetricsEnabled     bool
	MetricsNamespace   string
	LogGroup           string
}

// LoadConfig reads configuration from the environment, loading .env first
// when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8095"),
		Env:            getEnv("APP_ENV", "development"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		OrderAPIURL:     os.Getenv("ORDER_API_URL"),
		OrderAPITimeout: getDuration("ORDER_API_TIMEOUT", 15*time.Second),
		JWTSecret:       os.Getenv("JWT_SECRET"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:          getDuration("CART_TTL", 7*24*time.Hour),
		LocationCacheTTL: getDuration("LOCATION_CACHE_TTL", 5*time.Minute),

		SessionTTL:           getDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),
		SessionSweepInterval: getDuration("CHECKOUT_SESSION_SWEEP", time.Minute),
		SubmitLockTTL:        getDuration("CHECKOUT_LOCK_TTL", 30*time.Second),
		SubmitRatePerMinute:  getInt("CHECKOUT_SUBMIT_RATE", 10),
		MaxProofSize:         int64(getInt("PROOF_MAX_BYTES", 5*1024*1024)),

		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},

		UseSecrets:         getBool("AWS_USE_SECRETS", false),
		ProofBucket:        os.Getenv("PROOF_BUCKET"),
		ProofLinkTTL:       getDuration("PROOF_LINK_TTL", 15*time.Minute),
		ProofRecoveryQueue: os.Getenv("PROOF_RECOVERY_QUEUE"),
		ProofRecoveryDelay: getDuration("PROOF_RECOVERY_DELAY", 30*time.Second),
		SNSTopicARN:        os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		MetricsEnabled:     getBool("CLOUDWATCH_METRICS_ENABLED", false),
		MetricsNamespace:   getEnv("CLOUDWATCH_NAMESPACE", "Checkout"),
		LogGroup:           os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}
	return cfg, nil
}

// ApplySecrets overrides credentials with values from Secrets Manager.
// Missing secrets keep the environment values.
func (c *Config) ApplySecrets(ctx context.Context, sm aws_pkg.SecretReader) {
	if v, err := sm.GetSecret(ctx, "checkout/JWT_SECRET"); err == nil && v != "" {
		c.JWTSecret = v
	}
	if m, err := aws_pkg.GetJSONSecret(ctx, sm, "checkout/DB_CREDENTIALS"); err == nil {
		if v := m["POSTGRES_USER"]; v != "" {
			c.Postgres.User = v
		}
		if v := m["POSTGRES_PASSWORD"]; v != "" {
			c.Postgres.Password = v
		}
		if v := m["POSTGRES_DB"]; v != "" {
			c.Postgres.Name = v
		}
		if v := m["POSTGRES_HOST"]; v != "" {
			c.Postgres.Host = v
		}
		if v := m["POSTGRES_PORT"]; v != "" {
			c.Postgres.Port = v
		}
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.OrderAPIURL == "" {
		return fmt.Errorf("ORDER_API_URL not set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.MaxProofSize <= 0 {
		return fmt.Errorf("PROOF_MAX_BYTES must be positive")
	}
	return nil
}

// PostgresEnabled reports whether proof failures are persisted.
func (c *Config) PostgresEnabled() bool {
	return c.Postgres.User != "" && c.Postgres.Name != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
