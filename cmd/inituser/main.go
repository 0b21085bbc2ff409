package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/utils"
)

// Config is the subset of the server configuration inituser needs
type Config struct {
	Persistence config.PersistenceConfig
	Database    config.DatabaseConfig
	Password    config.PasswordConfig
}

func main() {
	// Parse command line arguments
	name := flag.String("name", "", "Display name for the new identity (required)")
	email := flag.String("email", "", "Email for the new identity (required)")
	pwd := flag.String("password", "", "Password for the new identity (required)")
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	if *name == "" || *email == "" || *pwd == "" {
		fmt.Println("Error: name, email, and password are required")
		flag.Usage()
		os.Exit(1)
	}

	config.LoadEnvFile(*envFile)
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Persistence.IsPostgres() {
		var err error
		pool, err = dbutils.NewDbPool(ctx, cfg.Database.ToDbConfig())
		if err != nil {
			slog.Error("Failed creating dbpool", "error", err)
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
		slog.Error("Failed to create identity repository", "error", err)
		os.Exit(-1)
	}
	if closer, ok := repo.(io.Closer); ok {
		defer closer.Close()
	}

	if err := password.NewPolicyChecker(cfg.Password.ToPolicy()).Check(*pwd); err != nil {
		slog.Error("Password rejected by policy", "error", err)
		os.Exit(1)
	}
	hasher, err := cfg.Password.NewHasher()
	if err != nil {
		slog.Error("Failed to create password hasher", "error", err)
		os.Exit(-1)
	}

	id, err := identity.NewVerifiedPasswordIdentity(identity.NewPasswordIdentityParams{
		DisplayName: *name,
		Email:       *email,
		Password:    *pwd,
		Now:         time.Now().UTC(),
	}, hasher)
	if err != nil {
		slog.Error("Invalid identity", "error", err)
		os.Exit(1)
	}

	if err := repo.Create(ctx, id); err != nil {
		slog.Error("Failed to create identity", "email", utils.MaskEmail(id.Email), "error", err)
		os.Exit(1)
	}

	slog.Info("Identity created", "id", id.ID, "email", utils.MaskEmail(id.Email))
}
