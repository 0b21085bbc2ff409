package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

// Config is everything cmd/authd reads from the environment
type Config struct {
	BaseURL  string `env:"BASE_URL" env-default:"http://localhost:4000"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	Prefix   string `env:"API_PREFIX_AUTH" env-default:"/api/v1/auth"`

	Persistence PersistenceConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Email       EmailConfig
	Password    PasswordConfig
	Google      GoogleConfig
	Redis       RedisConfig

	// Server
	AppConfig app.AppConfig
}

// LoadEnvFile loads path into the process environment when the file
// exists. Variables already set win over the file.
func LoadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}
	slog.Info("Loading configuration from .env file", "path", path)
	if err := godotenv.Load(path); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

// Load reads the optional .env file, then the environment, then validates.
func Load(envFile string) (*Config, error) {
	LoadEnvFile(envFile)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combined configuration
func (c *Config) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireValidURL("BASE_URL", c.BaseURL),
				RequireOneOf("LOG_LEVEL", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}),
			)
		},
		c.Persistence.Validate,
		c.JWT.Validate,
		c.Email.Validate,
		c.Password.Validate,
		c.Google.Validate,
	)
}

// SlogLevel maps LOG_LEVEL to a slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
