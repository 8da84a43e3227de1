package config

const EnvPrefix = "WARB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

const (
	EnvAppEnv   = "WARB_APP_ENV"
	EnvPort     = "WARB_APP_PORT"
	EnvLogLevel = "WARB_LOG_LEVEL"

	EnvDBDSN  = "WARB_DB_DSN"
	EnvDBHost = "WARB_DB_HOST"
	EnvDBUser = "WARB_DB_USER"
	EnvDBName = "WARB_DB_NAME"

	EnvRedisURL  = "WARB_REDIS_URL"
	EnvUseSQLite = "WARB_USE_SQLITE"

	EnvSessionBackend = "WARB_SESSION_BACKEND"
	EnvSessionIdleTTL = "WARB_SESSION_IDLE_TTL"

	EnvReturnWindowDays  = "WARB_RETURN_WINDOW_DAYS"
	EnvPaymentLinkExpiry = "WARB_PAYMENT_LINK_EXPIRY"

	EnvRazorpayKeyID     = "WARB_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "WARB_RAZORPAY_KEY_SECRET"
	EnvPubSubOpsTopic    = "WARB_PUBSUB_OPS_ALERT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
