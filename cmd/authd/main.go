package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-auth/pkg/auth"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/externalprovider"
	externalproviderapi "github.com/tendant/simple-auth/pkg/externalprovider/api"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/verificationcode"
)

func main() {
	started := time.Now()

	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("Starting simple-auth", "persistence", cfg.Persistence.Type, "base_url", cfg.BaseURL)

	ctx := context.Background()

	// Identity store
	var pool *pgxpool.Pool
	if cfg.Persistence.IsPostgres() {
		dbConfig := cfg.Database.ToDbConfig()
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}
		defer pool.Close()
	}
	repo, err := identity.NewRepository(cfg.Persistence.Type, identity.RepositoryConfig{
		Pool:       pool,
		DataDir:    cfg.Persistence.DataDir,
		SqlitePath: cfg.Persistence.SqlitePath,
	})
	if err != nil {
		slog.Error("Failed to create identity repository", "type", cfg.Persistence.Type, "error", err)
		os.Exit(-1)
	}
	if closer, ok := repo.(io.Closer); ok {
		defer closer.Close()
	}

	// Collaborators
	notificationManager, err := notification.NewNotificationManagerWithOptions(cfg.Email.NotificationOptions()...)
	if err != nil {
		slog.Error("Failed to initialize notification manager", "error", err)
		os.Exit(-1)
	}
	if !cfg.Email.IsConfigured() {
		slog.Warn("EMAIL_HOST not set, verification emails are only logged")
	}

	tokenService, err := cfg.JWT.NewTokenService()
	if err != nil {
		slog.Error("Failed to create token service", "error", err)
		os.Exit(-1)
	}

	hasher, err := cfg.Password.NewHasher()
	if err != nil {
		slog.Error("Failed to create password hasher", "error", err)
		os.Exit(-1)
	}

	authService := auth.NewAuthService(
		auth.WithRepository(repo),
		auth.WithHasher(hasher),
		auth.WithPasswordPolicy(password.NewPolicyChecker(cfg.Password.ToPolicy())),
		auth.WithCodeGenerator(verificationcode.NewGenerator(verificationcode.WithTTL(cfg.Email.CodeTTL))),
		auth.WithTokenService(tokenService),
		auth.WithMailer(notificationManager),
	)

	// HTTP
	var handleOpts []auth.HandleOption
	var providerOpts []externalproviderapi.HandleOption
	if setter := cfg.Cookie.CookieSetter(); setter != nil {
		handleOpts = append(handleOpts, auth.WithCookieSetter(setter))
		providerOpts = append(providerOpts, externalproviderapi.WithCookieSetter(setter))
	}
	authRouter := auth.NewHandle(authService, handleOpts...).Routes()

	if cfg.Google.IsConfigured() {
		providerService, err := newExternalProviderService(ctx, cfg)
		if err != nil {
			slog.Error("Failed to initialize Google login", "error", err)
			os.Exit(-1)
		}
		externalproviderapi.NewHandle(providerService, authService, providerOpts...).RegisterRoutes(authRouter)
		slog.Info("Google login enabled", "callback", cfg.Google.CallbackURL)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	server.R.Get("/health", auth.HealthHandler(started))
	server.R.Mount(cfg.Prefix, authRouter)

	slog.Info("simple-auth ready", "prefix", cfg.Prefix)
	server.Run()
}

func newExternalProviderService(ctx context.Context, cfg *config.Config) (*externalprovider.ExternalProviderService, error) {
	google, err := externalprovider.NewGoogleProvider(ctx, cfg.Google.ToProviderConfig())
	if err != nil {
		return nil, err
	}

	opts := []externalprovider.Option{
		externalprovider.WithProvider(google),
		externalprovider.WithStateExpiration(cfg.Redis.StateExpiration),
	}
	if cfg.Redis.IsConfigured() {
		rdb := cfg.Redis.NewClient()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		opts = append(opts, externalprovider.WithStateStore(externalprovider.NewRedisStateStore(rdb)))
		slog.Info("OAuth2 state stored in Redis", "addr", cfg.Redis.Addr)
	}
	return externalprovider.NewExternalProviderService(opts...), nil
}
