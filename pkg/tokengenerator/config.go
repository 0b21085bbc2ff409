package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-auth/pkg/utils"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 30 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Option configures a TokenService
type Option func(*TokenService)

// parseDurationValue parses either a string or time.Duration into time.Duration
func parseDurationValue(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		if val == "" {
			return 0, nil
		}
		return time.ParseDuration(val)
	default:
		return 0, fmt.Errorf("invalid duration type: %T", v)
	}
}

// WithAccessTokenExpiry sets the access token expiry duration
// Accepts either time.Duration or string (e.g., "1h", "30m")
func WithAccessTokenExpiry(expiry interface{}) Option {
	return func(s *TokenService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			s.accessTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse access token expiry", "err", err, "value", expiry)
		}
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
// Accepts either time.Duration or string (e.g., "24h", "168h")
func WithRefreshTokenExpiry(expiry interface{}) Option {
	return func(s *TokenService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			s.refreshTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse refresh token expiry", "err", err, "value", expiry)
		}
	}
}

// WithIssuer sets the iss claim for both token classes
func WithIssuer(issuer string) Option {
	return func(s *TokenService) {
		s.issuer = issuer
	}
}

// WithAudience sets the aud claim for both token classes
func WithAudience(audience string) Option {
	return func(s *TokenService) {
		s.audience = audience
	}
}

// WithClock replaces the time source used to stamp and validate tokens
func WithClock(clock utils.Clock) Option {
	return func(s *TokenService) {
		s.clock = clock
	}
}
