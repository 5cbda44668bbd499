package config

const EnvPrefix = "LIBRARYDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "LIBRARYDESK_APP_ENV"
	EnvPort              = "LIBRARYDESK_APP_PORT"
	EnvLogLevel          = "LIBRARYDESK_LOG_LEVEL"
	EnvDBDSN             = "LIBRARYDESK_DB_DSN"
	EnvDBHost            = "LIBRARYDESK_DB_HOST"
	EnvDBPort            = "LIBRARYDESK_DB_PORT"
	EnvDBUser            = "LIBRARYDESK_DB_USER"
	EnvDBPassword        = "LIBRARYDESK_DB_PASSWORD"
	EnvDBName            = "LIBRARYDESK_DB_NAME"
	EnvUseSQLite         = "LIBRARYDESK_USE_SQLITE"
	EnvRedisURL          = "LIBRARYDESK_REDIS_URL"
	EnvRedisCartStore    = "LIBRARYDESK_REDIS_CART_STORE"
	EnvLoanPeriodDays    = "LIBRARYDESK_LOAN_PERIOD_DAYS"
	EnvRenewalPeriodDays = "LIBRARYDESK_RENEWAL_PERIOD_DAYS"
	EnvOTLPEndpoint      = "LIBRARYDESK_OTLP_ENDPOINT"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
