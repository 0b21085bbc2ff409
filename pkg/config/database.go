package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// PersistenceConfig selects the identity store
type PersistenceConfig struct {
	Type       string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir    string `env:"FILE_DATA_DIR" env-default:"./data"`
	SqlitePath string `env:"SQLITE_PATH" env-default:"./data/auth.db"`
}

func (p PersistenceConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireOneOf("PERSISTENCE_TYPE", p.Type, []string{"postgres", "postgresql", "file", "sqlite", "memory", "inmem"}),
	)
}

// IsPostgres reports whether a database pool is needed
func (p PersistenceConfig) IsPostgres() bool {
	return p.Type == "postgres" || p.Type == "postgresql"
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTH_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
