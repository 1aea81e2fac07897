package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Loyalty      LoyaltyConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		if cfg.App.IsProd() {
			return nil, fmt.Errorf("%s is not allowed in %s", EnvSQLite, AppEnvProd)
		}
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins extends the local development origins.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration past which a statement is logged as a warning.
	SlowQuery time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only verifies tokens; issuance lives with the auth service.
type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// PricingConfig carries the externally supplied rate inputs. Both tax and
// delivery fee are zero today but stay independently overridable.
type PricingConfig struct {
	TaxRate              string `envconfig:"STOREFRONT_PRICING_TAX_RATE" default:"0"`
	DeliveryFeeCents     int64  `envconfig:"STOREFRONT_PRICING_DELIVERY_FEE_CENTS" default:"0"`
	InstantDiscountCents int64  `envconfig:"STOREFRONT_PRICING_INSTANT_DISCOUNT_CENTS" default:"100"`
}

// TaxRateDecimal returns the parsed tax rate (fraction of subtotal).
func (p PricingConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (p PricingConfig) validate() error {
	if raw := strings.TrimSpace(p.TaxRate); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPricingTaxRate, err)
		}
		if rate.IsNegative() {
			return fmt.Errorf("%s must be non-negative", EnvPricingTaxRate)
		}
	}
	if p.DeliveryFeeCents < 0 {
		return fmt.Errorf("%s must be non-negative", EnvPricingDeliveryFee)
	}
	if p.InstantDiscountCents < 0 {
		return fmt.Errorf("%s must be non-negative", EnvPricingInstantDiscount)
	}
	return nil
}

type LoyaltyConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_LOYALTY_CACHE_TTL" default:"720h"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
}

type CheckoutConfig struct {
	SessionTTL     time.Duration `envconfig:"STOREFRONT_CHECKOUT_SESSION_TTL" default:"2h"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	SubmitTimeout  time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"orders"`
	OrdersSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// PublishedTTL bounds how long a published-event mark is kept in Redis.
	PublishedTTL time.Duration `envconfig:"STOREFRONT_OUTBOX_PUBLISHED_TTL" default:"168h"`
	MetricsAddr  string        `envconfig:"STOREFRONT_OUTBOX_METRICS_ADDR"`
}

// RateLimitConfig bounds the order placement and payment endpoints.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit       int           `envconfig:"STOREFRONT_RATE_LIMIT_IP" default:"120"`
	CustomerLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CUSTOMER" default:"30"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"24h"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"25h"`
	JobTimeout      time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"10m"`
	OutboxRetention time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	DLQRetention    time.Duration `envconfig:"STOREFRONT_CRON_DLQ_RETENTION" default:"2160h"`
	MetricsAddr     string        `envconfig:"STOREFRONT_CRON_METRICS_ADDR"`
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
