// config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Stripe   StripeConfig
	PayPal   PayPalConfig
	Google   GoogleConfig
	Plain    PlainConfig
	Email    EmailConfig
	Tinybird TinybirdConfig
	R2       R2Config
	Fees     FeeConfig
	Auth     AuthConfig
	AppURL   string
	logger   *zap.Logger
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	TLS      bool
}

type KafkaConfig struct {
	Brokers             []string
	PayoutTopic         string
	ReconciliationTopic string
}

type StripeConfig struct {
	SecretKey          string
	FinancialAccountID string
	PaymentMethodID    string
	V2BaseURL          string
	V2APIVersion       string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	WebhookID    string
	Environment  string
	BaseURL      string
	RedirectURL  string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type PlainConfig struct {
	WebhookSecret string
}

type EmailConfig struct {
	SendgridAPIKey string
	FromAddress    string
	FromName       string
	Sandbox        bool
}

type TinybirdConfig struct {
	APIKey  string
	BaseURL string
}

type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicDomain    string
}

type FeeConfig struct {
	StablecoinPayoutFeeRate string
	FastACHFeeCents         int64
	FXMarkupRate            string
}

type AuthConfig struct {
	JWTSecret  string
	CronSecret string
}

func Load(logger *zap.Logger) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8030"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "partner_payouts"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Addr:     getEnv("REDIS_ADDR", "redis:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers:             getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
			PayoutTopic:         getEnv("KAFKA_PAYOUT_TOPIC", "partner.payouts"),
			ReconciliationTopic: getEnv("KAFKA_RECONCILIATION_TOPIC", "partner.reconciliation"),
		},
		Stripe: StripeConfig{
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			FinancialAccountID: getEnv("STRIPE_FINANCIAL_ACCOUNT_ID", ""),
			PaymentMethodID:    getEnv("STRIPE_PAYMENT_METHOD_ID", ""),
			V2BaseURL:          getEnv("STRIPE_V2_BASE_URL", "https://api.stripe.com"),
			V2APIVersion:       getEnv("STRIPE_V2_API_VERSION", "2025-09-30.preview"),
		},
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			WebhookID:    getEnv("PAYPAL_WEBHOOK_ID", ""),
			Environment:  getEnv("PAYPAL_ENV", "sandbox"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Plain: PlainConfig{
			WebhookSecret: getEnv("PLAIN_WEBHOOK_SECRET", ""),
		},
		Email: EmailConfig{
			SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress:    getEnv("EMAIL_FROM", "payouts@example.com"),
			FromName:       getEnv("EMAIL_FROM_NAME", "Partner Payouts"),
			Sandbox:        getEnvBool("EMAIL_SANDBOX", false),
		},
		Tinybird: TinybirdConfig{
			APIKey:  getEnv("TINYBIRD_API_KEY", ""),
			BaseURL: getEnv("TINYBIRD_API_URL", "https://api.us-east.tinybird.co"),
		},
		R2: R2Config{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("STORAGE_BUCKET", "partner-assets"),
			PublicDomain:    getEnv("STORAGE_BASE_URL", ""),
		},
		Fees: FeeConfig{
			StablecoinPayoutFeeRate: getEnv("STABLECOIN_PAYOUT_FEE_RATE", "0.02"),
			FastACHFeeCents:         int64(getEnvInt("FAST_ACH_FEE_CENTS", 2500)),
			FXMarkupRate:            getEnv("FX_MARKUP_RATE", "0.005"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			CronSecret: getEnv("CRON_SECRET", ""),
		},
		AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:8030"), "/"),
		logger: logger,
	}

	if cfg.PayPal.Environment == "production" {
		cfg.PayPal.BaseURL = "https://api-m.paypal.com"
	} else {
		cfg.PayPal.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	cfg.PayPal.RedirectURL = cfg.AppURL + "/api/v1/oauth/paypal/callback"
	cfg.Google.RedirectURL = cfg.AppURL + "/api/v1/oauth/google/callback"

	cfg.loadUpstash(logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("paypal_env", cfg.PayPal.Environment),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers))

	return cfg, nil
}

// loadUpstash maps the Upstash REST credentials onto a TLS redis connection
// when no explicit REDIS_URL is configured.
func (c *Config) loadUpstash(logger *zap.Logger) {
	restURL := getEnv("UPSTASH_REDIS_REST_URL", "")
	token := getEnv("UPSTASH_REDIS_REST_TOKEN", "")
	if c.Redis.URL != "" || restURL == "" {
		return
	}

	u, err := url.Parse(restURL)
	if err != nil || u.Hostname() == "" {
		logger.Warn("ignoring malformed UPSTASH_REDIS_REST_URL", zap.String("value", restURL))
		return
	}

	c.Redis.Addr = u.Hostname() + ":6379"
	c.Redis.Password = token
	c.Redis.TLS = true

	logger.Info("using upstash redis endpoint", zap.String("addr", c.Redis.Addr))
}

func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Auth.CronSecret == "" {
		errs = append(errs, errors.New("CRON_SECRET is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Fees.FastACHFeeCents < 0 {
		errs = append(errs, errors.New("FAST_ACH_FEE_CENTS must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
