package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Stripe   StripeConfig
	Mail     MailConfig
	Outbox   OutboxConfig
	Bookings BookingsConfig

	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HEARTHSTAY_APP_ENV" required:"true"`
	Port         string `envconfig:"HEARTHSTAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HEARTHSTAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HEARTHSTAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HEARTHSTAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HEARTHSTAY_DB_DSN"`
	Driver string `envconfig:"HEARTHSTAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HEARTHSTAY_DB_HOST"`
	LegacyPort     int    `envconfig:"HEARTHSTAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HEARTHSTAY_DB_USER"`
	LegacyPassword string `envconfig:"HEARTHSTAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"HEARTHSTAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"HEARTHSTAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HEARTHSTAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HEARTHSTAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HEARTHSTAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HEARTHSTAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HEARTHSTAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HEARTHSTAY_REDIS_ADDR"`
	Password     string        `envconfig:"HEARTHSTAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"HEARTHSTAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HEARTHSTAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HEARTHSTAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HEARTHSTAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HEARTHSTAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HEARTHSTAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HEARTHSTAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HEARTHSTAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HEARTHSTAY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"HEARTHSTAY_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	OutboxIdempotencyTTL  time.Duration `envconfig:"HEARTHSTAY_EVENTING_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HEARTHSTAY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"HEARTHSTAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HEARTHSTAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ReceiptTopic        string `envconfig:"HEARTHSTAY_PUBSUB_RECEIPT_TOPIC" default:"hs-receipt-events"`
	ReceiptSubscription string `envconfig:"HEARTHSTAY_PUBSUB_RECEIPT_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey              string `envconfig:"HEARTHSTAY_STRIPE_API_KEY"`
	Secret              string `envconfig:"HEARTHSTAY_STRIPE_SECRET"`
	Env                 string `envconfig:"HEARTHSTAY_STRIPE_ENV" default:"test"`
	PremiumHostPriceID  string `envconfig:"HEARTHSTAY_STRIPE_PREMIUM_HOST_PRICE_ID"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MailConfig struct {
	SMTPHost    string `envconfig:"HEARTHSTAY_SMTP_HOST"`
	SMTPPort    int    `envconfig:"HEARTHSTAY_SMTP_PORT" default:"587"`
	SMTPUser    string `envconfig:"HEARTHSTAY_SMTP_USER"`
	SMTPPass    string `envconfig:"HEARTHSTAY_SMTP_PASS"`
	DefaultFrom string `envconfig:"HEARTHSTAY_MAIL_FROM" default:"no-reply@hearthstay.com"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HEARTHSTAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HEARTHSTAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HEARTHSTAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HEARTHSTAY_AUTO_MIGRATE" default:"false"`
}

type BookingsConfig struct {
	PendingTTL time.Duration `envconfig:"HEARTHSTAY_BOOKINGS_PENDING_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
