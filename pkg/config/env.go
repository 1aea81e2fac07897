package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv  = "STOREFRONT_APP_ENV"
	EnvPort    = "STOREFRONT_APP_PORT"
	EnvLogLvl  = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN   = "STOREFRONT_DB_DSN"
	EnvDBHost  = "STOREFRONT_DB_HOST"
	EnvDBUser  = "STOREFRONT_DB_USER"
	EnvDBName  = "STOREFRONT_DB_NAME"
	EnvRedis   = "STOREFRONT_REDIS_URL"
	EnvJWTSec  = "STOREFRONT_JWT_SECRET"
	EnvJWTIss  = "STOREFRONT_JWT_ISSUER"
	EnvSQLite  = "STOREFRONT_USE_SQLITE"
	EnvMigrate = "STOREFRONT_AUTO_MIGRATE"

	EnvPricingTaxRate         = "STOREFRONT_PRICING_TAX_RATE"
	EnvPricingDeliveryFee     = "STOREFRONT_PRICING_DELIVERY_FEE_CENTS"
	EnvPricingInstantDiscount = "STOREFRONT_PRICING_INSTANT_DISCOUNT_CENTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
