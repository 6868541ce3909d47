package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every variable read by envconfig.
const EnvPrefix = "storefront"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"
)

var requiredLegacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	WooCommerce   WooCommerceConfig
	WordPress     WordPressConfig
	Mollie        MollieConfig
	Elastic       ElasticConfig
	Holiday       HolidayConfig
	Delivery      DeliveryConfig
	Cart          CartConfig
	Content       ContentConfig
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
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"STOREFRONT_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
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

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// WooCommerceConfig covers both the Store API (session cart) and the
// authenticated REST API (catalog, customers, orders).
type WooCommerceConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_WOO_BASE_URL" required:"true"`
	ConsumerKey    string        `envconfig:"STOREFRONT_WOO_CONSUMER_KEY" required:"true"`
	ConsumerSecret string        `envconfig:"STOREFRONT_WOO_CONSUMER_SECRET" required:"true"`
	Timeout        time.Duration `envconfig:"STOREFRONT_WOO_TIMEOUT" default:"10s"`
	RetryMax       int           `envconfig:"STOREFRONT_WOO_RETRY_MAX" default:"3"`
}

type WordPressConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_WP_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_WP_TIMEOUT" default:"10s"`
}

type MollieConfig struct {
	BaseURL     string        `envconfig:"STOREFRONT_MOLLIE_BASE_URL" default:"https://api.mollie.com/v2"`
	APIKey      string        `envconfig:"STOREFRONT_MOLLIE_API_KEY" required:"true"`
	RedirectURL string        `envconfig:"STOREFRONT_MOLLIE_REDIRECT_URL" required:"true"`
	WebhookURL  string        `envconfig:"STOREFRONT_MOLLIE_WEBHOOK_URL"`
	Timeout     time.Duration `envconfig:"STOREFRONT_MOLLIE_TIMEOUT" default:"10s"`
}

type ElasticConfig struct {
	Addresses    []string `envconfig:"STOREFRONT_ELASTIC_ADDRESSES" default:"http://localhost:9200"`
	Username     string   `envconfig:"STOREFRONT_ELASTIC_USERNAME"`
	Password     string   `envconfig:"STOREFRONT_ELASTIC_PASSWORD"`
	ProductIndex string   `envconfig:"STOREFRONT_ELASTIC_PRODUCT_INDEX" default:"products"`
}

// HolidayConfig points at the static blocked-dates document. Source may be
// an http(s) URL or a local file path.
type HolidayConfig struct {
	Source  string        `envconfig:"STOREFRONT_HOLIDAY_SOURCE" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_HOLIDAY_TIMEOUT" default:"10s"`
}

type DeliveryConfig struct {
	CutoffHour           int `envconfig:"STOREFRONT_DELIVERY_CUTOFF_HOUR" default:"13"`
	CutoffMinute         int `envconfig:"STOREFRONT_DELIVERY_CUTOFF_MINUTE" default:"0"`
	DefaultLeadInStock   int `envconfig:"STOREFRONT_DELIVERY_LEAD_IN_STOCK_DAYS" default:"1"`
	DefaultLeadBackorder int `envconfig:"STOREFRONT_DELIVERY_LEAD_BACKORDER_DAYS" default:"30"`
}

type CartConfig struct {
	SessionTTL  time.Duration `envconfig:"STOREFRONT_CART_SESSION_TTL" default:"720h"`
	SyncTimeout time.Duration `envconfig:"STOREFRONT_CART_SYNC_TIMEOUT" default:"10s"`
	SyncQueue   int           `envconfig:"STOREFRONT_CART_SYNC_QUEUE" default:"256"`
}

type ContentConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_CONTENT_CACHE_TTL" default:"5m"`
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
	for _, env := range requiredLegacyDBEnvVars {
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
