package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "meetproof"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultVerificationRadiusMeters = 100.0
	DefaultOTPCodeLength            = 6
	DefaultMaxCodeAttempts          = 3
	DefaultVerificationLockTTL      = 10 * time.Second
	DefaultDisputeSweepInterval     = 0 * time.Second // disabled unless configured

	DefaultPayoutServiceURL = "http://localhost:8081"

	DefaultPaginationLimit = 100
)
