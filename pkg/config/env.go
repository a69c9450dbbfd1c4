package config

import "time"

const EnvPrefix = "ROCKETSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	PaymentProviderRazorpay = "razorpay"
	PaymentProviderStripe   = "stripe"
)

const (
	MinDuplicateWindow = 10 * time.Minute
	MaxDuplicateWindow = 30 * time.Minute
)

const (
	EnvAppEnv  = "ROCKETSHOP_APP_ENV"
	EnvAppPort = "ROCKETSHOP_APP_PORT"

	EnvDBDSN    = "ROCKETSHOP_DB_DSN"
	EnvDBDriver = "ROCKETSHOP_DB_DRIVER"
	EnvDBHost   = "ROCKETSHOP_DB_HOST"
	EnvDBUser   = "ROCKETSHOP_DB_USER"
	EnvDBName   = "ROCKETSHOP_DB_NAME"

	EnvRedisURL = "ROCKETSHOP_REDIS_URL"

	EnvJWTSecret = "ROCKETSHOP_JWT_SECRET"
	EnvJWTIssuer = "ROCKETSHOP_JWT_ISSUER"

	EnvCheckoutDuplicateWindow = "ROCKETSHOP_CHECKOUT_DUPLICATE_WINDOW"
	EnvCheckoutDomesticCountry = "ROCKETSHOP_CHECKOUT_DOMESTIC_COUNTRY"

	EnvPaymentsProvider  = "ROCKETSHOP_PAYMENTS_PROVIDER"
	EnvRazorpayKeyID     = "ROCKETSHOP_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "ROCKETSHOP_RAZORPAY_KEY_SECRET"
	EnvStripeSecretKey   = "ROCKETSHOP_STRIPE_SECRET_KEY"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
