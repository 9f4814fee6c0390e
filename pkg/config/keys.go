package config

const EnvPrefix = "SMARTDOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SMARTDOT_APP_ENV"
	EnvPort     = "SMARTDOT_APP_PORT"
	EnvLogLevel = "SMARTDOT_LOG_LEVEL"

	EnvDBDSN    = "SMARTDOT_DB_DSN"
	EnvDBDriver = "SMARTDOT_DB_DRIVER"
	EnvDBHost   = "SMARTDOT_DB_HOST"
	EnvDBUser   = "SMARTDOT_DB_USER"
	EnvDBName   = "SMARTDOT_DB_NAME"

	EnvRedisURL = "SMARTDOT_REDIS_URL"

	EnvJWTSecret  = "SMARTDOT_JWT_SECRET"
	EnvJWTIssuer  = "SMARTDOT_JWT_ISSUER"
	EnvJWTExpMins = "SMARTDOT_JWT_EXPIRATION_MINUTES"

	EnvCartStorage = "SMARTDOT_CART_STORAGE"
	EnvCartMaxAge  = "SMARTDOT_CART_MAX_AGE"

	EnvWhatsAppNumber    = "SMARTDOT_CHECKOUT_WHATSAPP_NUMBER"
	EnvAdminSignupTokens = "SMARTDOT_ADMIN_SIGNUP_TOKENS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	CartStorageMemory = "memory"
	CartStorageRedis  = "redis"
	CartStorageSQL    = "sql"
)
