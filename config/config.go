package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"checkout-service"`

	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET"`
	DefaultCurrency   string `envconfig:"DEFAULT_CURRENCY" default:"INR"`

	GoogleClientID string        `envconfig:"GOOGLE_CLIENT_ID"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	AllowedOrigins     []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"100"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"mongo"`

	MongoURI      string `envconfig:"MONGODB_URI"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"checkout"`

	PostgresUser     string `envconfig:"POSTGRES_USER"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	PostgresTimeZone string `envconfig:"POSTGRES_TIMEZONE" default:"Asia/Kolkata"`

	DynamoOrdersTable string `envconfig:"DYNAMODB_ORDERS_TABLE" default:"checkout-orders"`
	DynamoUsersTable  string `envconfig:"DYNAMODB_USERS_TABLE" default:"checkout-users"`

	AWSRegion           string `envconfig:"AWS_REGION" default:"ap-south-1"`
	AWSEndpoint         string `envconfig:"AWS_ENDPOINT"`
	AWSAccessKeyID      string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSUseSecrets       bool   `envconfig:"AWS_USE_SECRETS" default:"false"`
	PaymentSNSTopicARN  string `envconfig:"PAYMENT_SNS_TOPIC_ARN"`
	CloudWatchEnabled   bool   `envconfig:"CLOUDWATCH_ENABLED" default:"false"`
	CloudWatchNamespace string `envconfig:"CLOUDWATCH_NAMESPACE" default:"ECommerce"`
	CloudWatchLogGroup  string `envconfig:"CLOUDWATCH_LOG_GROUP" default:"/ecommerce/services"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.DefaultCurrency))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
}

// ApplySecrets overrides credentials with values stored in Secrets Manager.
// Missing secrets are skipped so that env values stay in effect.
func (c *Config) ApplySecrets(ctx context.Context, sm aws_pkg.SecretGetter) {
	if m, err := aws_pkg.GetSecretMap(ctx, sm, "checkout/RAZORPAY"); err == nil {
		setIfPresent(&c.RazorpayKeyID, m, "RAZORPAY_KEY_ID")
		setIfPresent(&c.RazorpayKeySecret, m, "RAZORPAY_KEY_SECRET")
	}
	if v, err := sm.GetSecret(ctx, "checkout/JWT_SECRET"); err == nil && v != "" {
		c.JWTSecret = v
	}
	if m, err := aws_pkg.GetSecretMap(ctx, sm, "checkout/DB_CREDENTIALS"); err == nil {
		setIfPresent(&c.MongoURI, m, "MONGODB_URI")
		setIfPresent(&c.PostgresUser, m, "POSTGRES_USER")
		setIfPresent(&c.PostgresPassword, m, "POSTGRES_PASSWORD")
		setIfPresent(&c.PostgresDB, m, "POSTGRES_DB")
		setIfPresent(&c.PostgresHost, m, "POSTGRES_HOST")
		setIfPresent(&c.PostgresPort, m, "POSTGRES_PORT")
	}
}

func setIfPresent(dst *string, m map[string]string, key string) {
	if v, ok := m[key]; ok && v != "" {
		*dst = v
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must list at least one origin")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency)
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo store")
		}
	case StorePostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	case StoreDynamoDB:
		if c.DynamoOrdersTable == "" || c.DynamoUsersTable == "" {
			return fmt.Errorf("DYNAMODB_ORDERS_TABLE and DYNAMODB_USERS_TABLE are required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// PostgresDSN builds the connection string for gorm's postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

// NeedsAWS reports whether any AWS client has to be created.
func (c *Config) NeedsAWS() bool {
	return c.AWSUseSecrets || c.CloudWatchEnabled || c.PaymentSNSTopicARN != "" || c.StoreDriver == StoreDynamoDB
}
