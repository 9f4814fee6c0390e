package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	Checkout      CheckoutConfig
	Admin         AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the process cannot boot with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver)
	}
	switch c.Cart.Storage {
	case CartStorageMemory, CartStorageSQL:
	case CartStorageRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s=redis requires %s", EnvCartStorage, EnvRedisURL)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartStorage, c.Cart.Storage)
	}
	if c.Cart.MaxAge <= 0 {
		return fmt.Errorf("%s must be positive", EnvCartMaxAge)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTDOT_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTDOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SMARTDOT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SMARTDOT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SMARTDOT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SMARTDOT_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTDOT_DB_DSN"`
	Driver string `envconfig:"SMARTDOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTDOT_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTDOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTDOT_DB_USER"`
	LegacyPassword string `envconfig:"SMARTDOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTDOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTDOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTDOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTDOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTDOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTDOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: an empty URL and address disables redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"SMARTDOT_REDIS_URL"`
	Address      string        `envconfig:"SMARTDOT_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTDOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTDOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTDOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTDOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTDOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTDOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTDOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"SMARTDOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SMARTDOT_JWT_ISSUER" default:"smartdot"`
	ExpirationMinutes int    `envconfig:"SMARTDOT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SMARTDOT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SMARTDOT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SMARTDOT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SMARTDOT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SMARTDOT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`

	RegisterWindow     time.Duration `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterEmailLimit int           `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SMARTDOT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SMARTDOT_AUTO_MIGRATE" default:"false"`
}

// CartConfig controls where cart snapshots live and how long sessions stay in memory.
type CartConfig struct {
	Storage       string        `envconfig:"SMARTDOT_CART_STORAGE" default:"memory"`
	StorageKey    string        `envconfig:"SMARTDOT_CART_STORAGE_KEY" default:"smartdot_cart"`
	MaxAge        time.Duration `envconfig:"SMARTDOT_CART_MAX_AGE" default:"720h"`
	IdleTTL       time.Duration `envconfig:"SMARTDOT_CART_IDLE_TTL" default:"30m"`
	SessionHeader string        `envconfig:"SMARTDOT_CART_SESSION_HEADER" default:"X-Cart-Session"`
	SessionCookie string        `envconfig:"SMARTDOT_CART_SESSION_COOKIE" default:"smartdot_cart_session"`
	CookieSecure  bool          `envconfig:"SMARTDOT_CART_COOKIE_SECURE" default:"true"`
}

type CheckoutConfig struct {
	WhatsAppNumber string `envconfig:"SMARTDOT_CHECKOUT_WHATSAPP_NUMBER" default:"+250785657398"`
	StoreName      string `envconfig:"SMARTDOT_CHECKOUT_STORE_NAME" default:"SmartDot Electronics"`
	PublicBaseURL  string `envconfig:"SMARTDOT_CHECKOUT_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

type AdminConfig struct {
	SignupTokens []string `envconfig:"SMARTDOT_ADMIN_SIGNUP_TOKENS"`
}

// HasSignupToken reports whether token is one of the configured invitation tokens.
func (a AdminConfig) HasSignupToken(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	for _, candidate := range a.SignupTokens {
		if strings.TrimSpace(candidate) == token {
			return true
		}
	}
	return false
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DBDriverSQLite {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
