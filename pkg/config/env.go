package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvAdminAPISecret = "ADMIN_API_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvVerificationRadiusMeters = "VERIFICATION_RADIUS_METERS"
	EnvOTPCodeLength            = "OTP_CODE_LENGTH"
	EnvMaxCodeAttempts          = "MAX_CODE_ATTEMPTS"
	EnvVerificationLockTTL      = "VERIFICATION_LOCK_TTL"
	EnvDisputeSweepInterval     = "DISPUTE_SWEEP_INTERVAL"

	EnvPayoutServiceURL = "PAYOUT_SERVICE_URL"

	EnvOmisePublicKey = "OMISE_PUBLIC_KEY"
	EnvOmiseSecretKey = "OMISE_SECRET_KEY"
)
