package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvPlatformPort           = "PORT"
	EnvInstanceID             = "STOREFRONT_INSTANCE_ID"
	EnvLogLevel               = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBPort                 = "STOREFRONT_DB_PORT"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBPassword             = "STOREFRONT_DB_PASSWORD"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvDBSSLMode              = "STOREFRONT_DB_SSLMODE"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvCORSAllowedOrigins     = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID           = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvOutboxBatchSize        = "STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvCORSAllowCredentials   = "STOREFRONT_CORS_ALLOW_CREDENTIALS"
	EnvTracingEndpoint        = "STOREFRONT_OTEL_EXPORTER_ENDPOINT"
	EnvTracingSampleRatio     = "STOREFRONT_OTEL_SAMPLE_RATIO"
	EnvPasswordResetTTL       = "STOREFRONT_PASSWORD_RESET_TOKEN_TTL"
)
