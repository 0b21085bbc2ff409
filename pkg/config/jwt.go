package config

import (
	"time"

	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

// JWTConfig holds token signing configuration. The two secrets must differ.
type JWTConfig struct {
	AccessSecret       string        `env:"JWT_SECRET"`
	RefreshSecret      string        `env:"JWT_REFRESH_SECRET"`
	Issuer             string        `env:"JWT_ISSUER" env-default:"simple-auth"`
	Audience           string        `env:"JWT_AUDIENCE" env-default:"simple-auth"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"30m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" env-default:"168h"`
}

func (j JWTConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireNonEmpty("JWT_SECRET", j.AccessSecret),
		RequireNonEmpty("JWT_REFRESH_SECRET", j.RefreshSecret),
		RequirePositiveDuration("ACCESS_TOKEN_EXPIRY", j.AccessTokenExpiry),
		RequirePositiveDuration("REFRESH_TOKEN_EXPIRY", j.RefreshTokenExpiry),
	)
	if j.AccessSecret != "" && j.AccessSecret == j.RefreshSecret {
		errs = append(errs, ValidationError{Field: "JWT_REFRESH_SECRET", Message: "must differ from JWT_SECRET"})
	}
	return errs
}

// NewTokenService builds the token service this config describes
func (j JWTConfig) NewTokenService() (*tokengenerator.TokenService, error) {
	return tokengenerator.NewTokenService(j.AccessSecret, j.RefreshSecret,
		tokengenerator.WithIssuer(j.Issuer),
		tokengenerator.WithAudience(j.Audience),
		tokengenerator.WithAccessTokenExpiry(j.AccessTokenExpiry),
		tokengenerator.WithRefreshTokenExpiry(j.RefreshTokenExpiry),
	)
}

// CookieConfig controls whether issued tokens are mirrored into cookies
type CookieConfig struct {
	Enabled  bool `env:"TOKEN_COOKIES_ENABLED" env-default:"false"`
	Secure   bool `env:"COOKIE_SECURE" env-default:"false"`
	HttpOnly bool `env:"COOKIE_HTTP_ONLY" env-default:"true"`
}

// CookieSetter returns nil when cookies are disabled
func (c CookieConfig) CookieSetter() tokengenerator.CookieSetter {
	if !c.Enabled {
		return nil
	}
	return tokengenerator.NewCookieSetter(c.HttpOnly, c.Secure)
}
