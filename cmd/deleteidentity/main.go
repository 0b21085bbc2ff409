package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/utils"
)

// Config is the subset of the server configuration deleteidentity needs
type Config struct {
	Persistence config.PersistenceConfig
	Database    config.DatabaseConfig
}

func main() {
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-env file] <email>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	email := identity.NormalizeEmail(flag.Arg(0))

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

	if err := deleteByEmail(ctx, repo, email); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			slog.Warn("No identity with that email", "email", utils.MaskEmail(email))
			os.Exit(1)
		}
		slog.Error("Failed to delete identity", "email", utils.MaskEmail(email), "error", err)
		os.Exit(-1)
	}
	slog.Info("Identity deleted", "email", utils.MaskEmail(email))
}

func deleteByEmail(ctx context.Context, repo identity.Repository, email string) error {
	id, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id.ID)
}
