package identity

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating an identity repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// DataDir is required for file-based repositories
	DataDir string
	// SqlitePath is required for SQLite repositories
	SqlitePath string
}

// NewRepository creates an identity repository based on the persistence type
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(config.Pool), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileRepository(config.DataDir)
	case "sqlite":
		if config.SqlitePath == "" {
			return nil, fmt.Errorf("sqlitePath required for sqlite repository")
		}
		return OpenSqliteRepository(config.SqlitePath)
	case "memory", "inmem":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, sqlite, memory)", persistenceType)
	}
}
