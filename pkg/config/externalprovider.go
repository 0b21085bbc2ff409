package config

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-auth/pkg/externalprovider"
)

// GoogleConfig contains the Google OAuth2 client registration
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	CallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
	Enabled      bool   `env:"GOOGLE_ENABLED" env-default:"false"`
}

func (g GoogleConfig) Validate() ValidationErrors {
	if !g.Enabled {
		return nil
	}
	return CollectErrors(
		RequireNonEmpty("GOOGLE_CLIENT_ID", g.ClientID),
		RequireNonEmpty("GOOGLE_CLIENT_SECRET", g.ClientSecret),
		RequireValidURL("GOOGLE_CALLBACK_URL", g.CallbackURL),
	)
}

// IsConfigured returns true if Google OAuth2 is enabled and credentials are set
func (g GoogleConfig) IsConfigured() bool {
	return g.Enabled && g.ClientID != "" && g.ClientSecret != ""
}

// ToProviderConfig converts the config to an externalprovider.GoogleConfig
func (g GoogleConfig) ToProviderConfig() externalprovider.GoogleConfig {
	return externalprovider.GoogleConfig{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.CallbackURL,
	}
}

// RedisConfig points at the Redis used for OAuth2 state. Without an
// address, state is kept in memory.
type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR" env-default:""`
	Password        string        `env:"REDIS_PASSWORD" env-default:""`
	DB              int           `env:"REDIS_DB" env-default:"0"`
	StateExpiration time.Duration `env:"OAUTH_STATE_EXPIRATION" env-default:"10m"`
}

func (r RedisConfig) IsConfigured() bool {
	return r.Addr != ""
}

// NewClient returns a go-redis client for this config
func (r RedisConfig) NewClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
}
