package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "KURUMART"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv   = "KURUMART_APP_ENV"
	EnvPort     = "KURUMART_APP_PORT"
	EnvDBDSN    = "KURUMART_DB_DSN"
	EnvDBHost   = "KURUMART_DB_HOST"
	EnvDBUser   = "KURUMART_DB_USER"
	EnvDBName   = "KURUMART_DB_NAME"
	EnvRedisURL = "KURUMART_REDIS_URL"

	EnvJWTSecret  = "KURUMART_JWT_SECRET"
	EnvJWTIssuer  = "KURUMART_JWT_ISSUER"
	EnvJWTExpMins = "KURUMART_JWT_EXPIRATION_MINUTES"

	EnvFeedURL     = "KURUMART_UPSTREAM_FEED_URL"
	EnvUpstreamAPI = "KURUMART_UPSTREAM_API_URL"

	EnvGCPProjectID   = "KURUMART_GCP_PROJECT_ID"
	EnvBidEventsTopic = "KURUMART_PUBSUB_BID_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
