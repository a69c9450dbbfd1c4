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
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
	Payments PaymentsConfig
	Razorpay RazorpayConfig
	Stripe   StripeConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(cfg.Razorpay, cfg.Stripe); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ROCKETSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"ROCKETSHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ROCKETSHOP_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ROCKETSHOP_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ROCKETSHOP_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ROCKETSHOP_AUTO_MIGRATE" default:"false"`

	CORSOrigins []string `envconfig:"ROCKETSHOP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ROCKETSHOP_DB_DSN"`
	Driver string `envconfig:"ROCKETSHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ROCKETSHOP_DB_HOST"`
	Port     int    `envconfig:"ROCKETSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"ROCKETSHOP_DB_USER"`
	Password string `envconfig:"ROCKETSHOP_DB_PASSWORD"`
	Name     string `envconfig:"ROCKETSHOP_DB_NAME"`
	SSLMode  string `envconfig:"ROCKETSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROCKETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROCKETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROCKETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROCKETSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ROCKETSHOP_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the embedded driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ROCKETSHOP_REDIS_URL"`
	Address      string        `envconfig:"ROCKETSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"ROCKETSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROCKETSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROCKETSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROCKETSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROCKETSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROCKETSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROCKETSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"ROCKETSHOP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ROCKETSHOP_JWT_ISSUER" required:"true"`
	// Leeway absorbs clock skew between the identity service and this one.
	Leeway time.Duration `envconfig:"ROCKETSHOP_JWT_LEEWAY" default:"30s"`
}

type CheckoutConfig struct {
	DuplicateWindow     time.Duration `envconfig:"ROCKETSHOP_CHECKOUT_DUPLICATE_WINDOW" default:"10m"`
	DomesticCountry     string        `envconfig:"ROCKETSHOP_CHECKOUT_DOMESTIC_COUNTRY" default:"india"`
	Currency            string        `envconfig:"ROCKETSHOP_CHECKOUT_CURRENCY" default:"INR"`
	VerifyClientBilling bool          `envconfig:"ROCKETSHOP_CHECKOUT_VERIFY_CLIENT_BILLING" default:"false"`
	MaxConcurrentGroups int           `envconfig:"ROCKETSHOP_CHECKOUT_MAX_CONCURRENT_GROUPS" default:"4"`
	RateLimitPerMinute  int64         `envconfig:"ROCKETSHOP_CHECKOUT_RATE_LIMIT_PER_MINUTE" default:"10"`
	GatewayCallTimeout  time.Duration `envconfig:"ROCKETSHOP_CHECKOUT_GATEWAY_TIMEOUT" default:"15s"`
	TaxShipping         bool          `envconfig:"ROCKETSHOP_CHECKOUT_TAX_SHIPPING" default:"false"`
}

// Window clamps the duplicate-detection window to the supported range.
func (c CheckoutConfig) Window() time.Duration {
	switch {
	case c.DuplicateWindow < MinDuplicateWindow:
		return MinDuplicateWindow
	case c.DuplicateWindow > MaxDuplicateWindow:
		return MaxDuplicateWindow
	default:
		return c.DuplicateWindow
	}
}

type PaymentsConfig struct {
	Provider string `envconfig:"ROCKETSHOP_PAYMENTS_PROVIDER" default:"razorpay"`
}

func (p PaymentsConfig) validate(rzp RazorpayConfig, st StripeConfig) error {
	switch strings.ToLower(strings.TrimSpace(p.Provider)) {
	case PaymentProviderRazorpay:
		if rzp.KeyID == "" || rzp.KeySecret == "" {
			return fmt.Errorf("%s and %s are required for the razorpay provider", EnvRazorpayKeyID, EnvRazorpayKeySecret)
		}
	case PaymentProviderStripe:
		if st.SecretKey == "" {
			return fmt.Errorf("%s is required for the stripe provider", EnvStripeSecretKey)
		}
	default:
		return fmt.Errorf("unsupported payments provider %q", p.Provider)
	}
	return nil
}

type RazorpayConfig struct {
	KeyID       string        `envconfig:"ROCKETSHOP_RAZORPAY_KEY_ID"`
	KeySecret   string        `envconfig:"ROCKETSHOP_RAZORPAY_KEY_SECRET"`
	BaseURL     string        `envconfig:"ROCKETSHOP_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout     time.Duration `envconfig:"ROCKETSHOP_RAZORPAY_TIMEOUT" default:"10s"`
	MaxAttempts int           `envconfig:"ROCKETSHOP_RAZORPAY_MAX_ATTEMPTS" default:"3"`
}

type StripeConfig struct {
	SecretKey string `envconfig:"ROCKETSHOP_STRIPE_SECRET_KEY"`
	Env       string `envconfig:"ROCKETSHOP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"ROCKETSHOP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"ROCKETSHOP_PUBSUB_ORDERS_TOPIC" default:"rs-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ROCKETSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ROCKETSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ROCKETSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"ROCKETSHOP_CRON_INTERVAL" default:"1h"`
	AttemptRetention  time.Duration `envconfig:"ROCKETSHOP_CRON_ATTEMPT_RETENTION" default:"168h"`
	OutboxRetention   time.Duration `envconfig:"ROCKETSHOP_CRON_OUTBOX_RETENTION" default:"720h"`
	LockTTL           time.Duration `envconfig:"ROCKETSHOP_CRON_LOCK_TTL" default:"10m"`
	CleanupBatchLimit int           `envconfig:"ROCKETSHOP_CRON_BATCH_LIMIT" default:"1000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
