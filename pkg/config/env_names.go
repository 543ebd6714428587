package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for unannotated fields.
const EnvPrefix = "timebank"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TIMEBANK_APP_ENV"
	EnvPort   = "TIMEBANK_APP_PORT"

	EnvDBDSN  = "TIMEBANK_DB_DSN"
	EnvDBHost = "TIMEBANK_DB_HOST"
	EnvDBUser = "TIMEBANK_DB_USER"
	EnvDBName = "TIMEBANK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
