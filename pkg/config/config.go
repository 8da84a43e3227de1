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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Sessions     SessionsConfig
	Returns      ReturnsConfig
	WhatsApp     WhatsAppConfig
	Shiprocket   ShiprocketConfig
	Razorpay     RazorpayConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Sessions.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WARB_APP_ENV" required:"true"`
	Port         string `envconfig:"WARB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WARB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WARB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WARB_DB_DSN"`
	Driver string `envconfig:"WARB_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"WARB_SQLITE_PATH" default:"wa-returns.db"`

	LegacyHost     string `envconfig:"WARB_DB_HOST"`
	LegacyPort     int    `envconfig:"WARB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WARB_DB_USER"`
	LegacyPassword string `envconfig:"WARB_DB_PASSWORD"`
	LegacyName     string `envconfig:"WARB_DB_NAME"`
	LegacySSLMode  string `envconfig:"WARB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WARB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WARB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WARB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WARB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WARB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WARB_REDIS_ADDR"`
	Password     string        `envconfig:"WARB_REDIS_PASSWORD"`
	DB           int           `envconfig:"WARB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WARB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WARB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WARB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WARB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WARB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WARB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WARB_AUTO_MIGRATE" default:"false"`
}

// SessionsConfig controls where in-flight return/exchange dialogues live.
// Memory sessions are lost on restart.
type SessionsConfig struct {
	Backend       string        `envconfig:"WARB_SESSION_BACKEND" default:"memory"`
	IdleTTL       time.Duration `envconfig:"WARB_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"WARB_SESSION_SWEEP_INTERVAL" default:"5m"`
}

// UsesRedis reports whether sessions are stored in Redis.
func (s SessionsConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), SessionBackendRedis)
}

func (s SessionsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSessionBackend, SessionBackendMemory, SessionBackendRedis)
	}
	if s.IdleTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSessionIdleTTL)
	}
	return nil
}

type ReturnsConfig struct {
	WindowDays        int           `envconfig:"WARB_RETURN_WINDOW_DAYS" default:"7"`
	PaymentLinkExpiry time.Duration `envconfig:"WARB_PAYMENT_LINK_EXPIRY" default:"24h"`
	SupportContact    string        `envconfig:"WARB_SUPPORT_CONTACT" default:"support@example.com"`
	Timezone          string        `envconfig:"WARB_TIMEZONE" default:"Asia/Kolkata"`
	CurrencySymbol    string        `envconfig:"WARB_CURRENCY_SYMBOL" default:"₹"`
	MessageRetention  time.Duration `envconfig:"WARB_MESSAGE_RETENTION" default:"2160h"`
}

// Location resolves the configured timezone, defaulting to UTC.
func (r ReturnsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(r.Timezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

type WhatsAppConfig struct {
	AccessToken   string `envconfig:"WARB_WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `envconfig:"WARB_WHATSAPP_PHONE_NUMBER_ID"`
	APIVersion    string `envconfig:"WARB_WHATSAPP_API_VERSION" default:"v18.0"`
	VerifyToken   string `envconfig:"WARB_WHATSAPP_VERIFY_TOKEN"`
	AppSecret     string `envconfig:"WARB_WHATSAPP_APP_SECRET"`
	BaseURL       string `envconfig:"WARB_WHATSAPP_BASE_URL" default:"https://graph.facebook.com"`
}

type ShiprocketConfig struct {
	BaseURL  string `envconfig:"WARB_SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	Token    string `envconfig:"WARB_SHIPROCKET_TOKEN"`
	Email    string `envconfig:"WARB_SHIPROCKET_EMAIL"`
	Password string `envconfig:"WARB_SHIPROCKET_PASSWORD"`

	// WebhookToken is compared to the X-Api-Key header when set.
	WebhookToken string `envconfig:"WARB_SHIPROCKET_WEBHOOK_TOKEN"`
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"WARB_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"WARB_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"WARB_RAZORPAY_WEBHOOK_SECRET"`
	CallbackURL   string `envconfig:"WARB_RAZORPAY_CALLBACK_URL"`
	Currency      string `envconfig:"WARB_RAZORPAY_CURRENCY" default:"INR"`
}

// Enabled reports whether payment links can be created.
func (r RazorpayConfig) Enabled() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"WARB_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WARB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OpsAlertTopic string `envconfig:"WARB_PUBSUB_OPS_ALERT_TOPIC"`
}

// Enabled reports whether ops alerts should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.OpsAlertTopic) != ""
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
