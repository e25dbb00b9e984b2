package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "hearthstay"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "HEARTHSTAY_APP_ENV"
	EnvPort             = "HEARTHSTAY_APP_PORT"
	EnvRedisURL         = "HEARTHSTAY_REDIS_URL"
	EnvJWTSecret        = "HEARTHSTAY_JWT_SECRET"
	EnvJWTIssuer        = "HEARTHSTAY_JWT_ISSUER"
	EnvJWTExpMins       = "HEARTHSTAY_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID     = "HEARTHSTAY_GCP_PROJECT_ID"
	EnvPubSubReceiptSub = "HEARTHSTAY_PUBSUB_RECEIPT_SUBSCRIPTION"
)

const (
	EnvDBDSN  = "HEARTHSTAY_DB_DSN"
	EnvDBHost = "HEARTHSTAY_DB_HOST"
	EnvDBUser = "HEARTHSTAY_DB_USER"
	EnvDBName = "HEARTHSTAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
