package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry fully
	// qualified env tags so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "NOVAMART_DB_DSN"
	EnvDBHost = "NOVAMART_DB_HOST"
	EnvDBUser = "NOVAMART_DB_USER"
	EnvDBName = "NOVAMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
