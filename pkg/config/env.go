package config

// EnvPrefix is empty because every field carries its fully qualified name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayWompi     = "wompi"
	GatewayFastTrack = "fasttrack"
)

const (
	EnvAppEnv = "VITORA_APP_ENV"
	EnvPort   = "VITORA_APP_PORT"

	EnvDBDSN  = "VITORA_DB_DSN"
	EnvDBHost = "VITORA_DB_HOST"
	EnvDBUser = "VITORA_DB_USER"
	EnvDBName = "VITORA_DB_NAME"

	EnvRedisURL = "VITORA_REDIS_URL"

	EnvJWTSecret  = "VITORA_JWT_SECRET"
	EnvJWTIssuer  = "VITORA_JWT_ISSUER"
	EnvJWTExpMins = "VITORA_JWT_EXPIRATION_MINUTES"

	EnvCheckoutGateway       = "VITORA_CHECKOUT_GATEWAY"
	EnvGatewayRequestTimeout = "VITORA_GATEWAY_REQUEST_TIMEOUT"
	EnvReferenceBase         = "VITORA_REFERENCE_BASE"

	EnvWompiPublicKey       = "VITORA_WOMPI_PUBLIC_KEY"
	EnvWompiPrivateKey      = "VITORA_WOMPI_PRIVATE_KEY"
	EnvWompiIntegritySecret = "VITORA_WOMPI_INTEGRITY_SECRET"
	EnvWompiEventsSecret    = "VITORA_WOMPI_EVENTS_SECRET"
	EnvWompiRedirectURL     = "VITORA_WOMPI_REDIRECT_URL"

	EnvAdminEmail   = "VITORA_ADMIN_EMAIL"
	EnvEmailTimeout = "VITORA_EMAIL_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
