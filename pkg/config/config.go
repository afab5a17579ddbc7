package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Wompi        WompiConfig
	FastTrack    FastTrackConfig
	Sendgrid     SendgridConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VITORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VITORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VITORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VITORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VITORA_SERVICE_KIND" default:"api"`
}

type HTTPConfig struct {
	AllowedOrigins   []string      `envconfig:"VITORA_CORS_ALLOWED_ORIGINS" default:"https://vitoracolombia.com,http://localhost:3000"`
	PublicRateLimit  int           `envconfig:"VITORA_PUBLIC_RATE_LIMIT" default:"30"`
	PublicRateWindow time.Duration `envconfig:"VITORA_PUBLIC_RATE_WINDOW" default:"1m"`
	ShutdownTimeout  time.Duration `envconfig:"VITORA_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type DBConfig struct {
	DSN    string `envconfig:"VITORA_DB_DSN"`
	Driver string `envconfig:"VITORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VITORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VITORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VITORA_DB_USER"`
	LegacyPassword string `envconfig:"VITORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VITORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VITORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VITORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VITORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VITORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VITORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"VITORA_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VITORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VITORA_REDIS_ADDR"`
	Password     string        `envconfig:"VITORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VITORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VITORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VITORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VITORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VITORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VITORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VITORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VITORA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VITORA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VITORA_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig holds the settings shared by every payment gateway integration.
type GatewayConfig struct {
	// Checkout selects which integration builds new checkout intents.
	Checkout       string        `envconfig:"VITORA_CHECKOUT_GATEWAY" default:"wompi"`
	RequestTimeout time.Duration `envconfig:"VITORA_GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	ReferenceBase  int64         `envconfig:"VITORA_REFERENCE_BASE" default:"100000"`
}

func (g GatewayConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(g.Checkout)) {
	case GatewayWompi, GatewayFastTrack:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvCheckoutGateway, GatewayWompi, GatewayFastTrack)
	}
}

type WompiConfig struct {
	BaseURL         string `envconfig:"VITORA_WOMPI_BASE_URL" default:"https://production.wompi.co/v1"`
	CheckoutURL     string `envconfig:"VITORA_WOMPI_CHECKOUT_URL" default:"https://checkout.wompi.co/p/"`
	PublicKey       string `envconfig:"VITORA_WOMPI_PUBLIC_KEY"`
	PrivateKey      string `envconfig:"VITORA_WOMPI_PRIVATE_KEY"`
	IntegritySecret string `envconfig:"VITORA_WOMPI_INTEGRITY_SECRET"`
	EventsSecret    string `envconfig:"VITORA_WOMPI_EVENTS_SECRET"`
	RedirectURL     string `envconfig:"VITORA_WOMPI_REDIRECT_URL"`
	Currency        string `envconfig:"VITORA_WOMPI_CURRENCY" default:"COP"`
}

type FastTrackConfig struct {
	BaseURL         string `envconfig:"VITORA_FASTTRACK_BASE_URL"`
	APIKey          string `envconfig:"VITORA_FASTTRACK_API_KEY"`
	IntegritySecret string `envconfig:"VITORA_FASTTRACK_INTEGRITY_SECRET"`
	RedirectURL     string `envconfig:"VITORA_FASTTRACK_REDIRECT_URL"`
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"VITORA_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"VITORA_SENDGRID_FROM_EMAIL"`
	FromName    string        `envconfig:"VITORA_SENDGRID_FROM_NAME" default:"Vitora"`
	AdminEmail  string        `envconfig:"VITORA_ADMIN_EMAIL"`
	Timeout     time.Duration `envconfig:"VITORA_EMAIL_TIMEOUT" default:"15s"`
	BrandName   string        `envconfig:"VITORA_BRAND_NAME" default:"VITORA"`
	WebsiteURL  string        `envconfig:"VITORA_WEBSITE_URL" default:"https://vitoracolombia.com"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"VITORA_CRON_INTERVAL" default:"3m"`
	NotificationBatch int           `envconfig:"VITORA_NOTIFICATION_SWEEP_BATCH" default:"50"`
	PollBatch         int           `envconfig:"VITORA_PENDING_POLL_BATCH" default:"50"`
	PollStaleAfter    time.Duration `envconfig:"VITORA_PENDING_POLL_STALE_AFTER" default:"10m"`
	PollGiveUpAfter   time.Duration `envconfig:"VITORA_PENDING_POLL_GIVE_UP_AFTER" default:"72h"`
	OutboxRetention   time.Duration `envconfig:"VITORA_OUTBOX_RETENTION" default:"720h"`
	LockTTL           time.Duration `envconfig:"VITORA_CRON_LOCK_TTL" default:"10m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VITORA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"VITORA_PUBSUB_PAYMENTS_TOPIC" default:"vitora-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"VITORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"VITORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"VITORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"VITORA_OUTBOX_METRICS_ADDR"`
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
