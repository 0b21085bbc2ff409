// Package config loads simple-auth configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file, and are bound with cleanenv struct tags:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		// err lists every invalid field
//	}
//
// The most important variables:
//
//	PERSISTENCE_TYPE        postgres | sqlite | file | memory (default postgres)
//	JWT_SECRET              access token secret (required)
//	JWT_REFRESH_SECRET      refresh token secret (required, must differ)
//	ACCESS_TOKEN_EXPIRY     default 30m
//	REFRESH_TOKEN_EXPIRY    default 168h
//	EMAIL_HOST              SMTP host; empty logs codes instead of sending
//	VERIFICATION_CODE_TTL   default 10m
//	GOOGLE_ENABLED          enables /google and /google/callback
//	REDIS_ADDR              shared OAuth2 state store; empty keeps it in memory
//	LOG_LEVEL               debug | info | warn | error
package config
