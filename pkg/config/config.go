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
	DB           DBConfig
	Redis        RedisConfig
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
	Circulation  CirculationConfig
	Tracing      TracingConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Circulation.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIBRARYDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRARYDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LIBRARYDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIBRARYDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LIBRARYDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRARYDESK_DB_DSN"`
	Driver string `envconfig:"LIBRARYDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LIBRARYDESK_DB_HOST"`
	Port     int    `envconfig:"LIBRARYDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"LIBRARYDESK_DB_USER"`
	Password string `envconfig:"LIBRARYDESK_DB_PASSWORD"`
	Name     string `envconfig:"LIBRARYDESK_DB_NAME"`
	SSLMode  string `envconfig:"LIBRARYDESK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"LIBRARYDESK_SQLITE_PATH" default:"librarydesk.db"`

	MaxOpenConns    int           `envconfig:"LIBRARYDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRARYDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRARYDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRARYDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional. With no URL or address the API keeps cart
// sessions in process and skips idempotency replay.
type RedisConfig struct {
	URL          string        `envconfig:"LIBRARYDESK_REDIS_URL"`
	Address      string        `envconfig:"LIBRARYDESK_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRARYDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRARYDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRARYDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRARYDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRARYDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRARYDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRARYDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `envconfig:"LIBRARYDESK_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"LIBRARYDESK_HTTP_WRITE_TIMEOUT" default:"30s"`
	RateLimitRPS   float64       `envconfig:"LIBRARYDESK_HTTP_RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int           `envconfig:"LIBRARYDESK_HTTP_RATE_LIMIT_BURST" default:"40"`
	CORSOrigins    []string      `envconfig:"LIBRARYDESK_HTTP_CORS_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"LIBRARYDESK_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"LIBRARYDESK_AUTO_MIGRATE" default:"false"`
	RedisCartStore bool `envconfig:"LIBRARYDESK_REDIS_CART_STORE" default:"false"`
}

type CirculationConfig struct {
	LoanPeriodDays    int           `envconfig:"LIBRARYDESK_LOAN_PERIOD_DAYS" default:"14"`
	RenewalPeriodDays int           `envconfig:"LIBRARYDESK_RENEWAL_PERIOD_DAYS" default:"14"`
	CartTTL           time.Duration `envconfig:"LIBRARYDESK_CART_TTL" default:"12h"`
}

// LoanPeriod returns the fixed loan period applied at checkout.
func (c CirculationConfig) LoanPeriod() time.Duration {
	return time.Duration(c.LoanPeriodDays) * 24 * time.Hour
}

func (c CirculationConfig) validate() error {
	if c.LoanPeriodDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvLoanPeriodDays)
	}
	if c.RenewalPeriodDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvRenewalPeriodDays)
	}
	return nil
}

type TracingConfig struct {
	OTLPEndpoint string  `envconfig:"LIBRARYDESK_OTLP_ENDPOINT"`
	Insecure     bool    `envconfig:"LIBRARYDESK_OTLP_INSECURE" default:"true"`
	SampleRatio  float64 `envconfig:"LIBRARYDESK_TRACE_SAMPLE_RATIO" default:"1"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LIBRARYDESK_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.Driver == DriverSQLite {
		return nil
	}

	missing := []string{}
	partValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dsnPartEnvVars {
		if partValues[env] == "" {
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
