package identity

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/utils"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SqliteRepository stores identities in a single SQLite database file.
// Timestamps are stored as unix milliseconds.
type SqliteRepository struct {
	sqlDB *sql.DB
}

// OpenSqliteRepository opens (and creates if needed) the database at path.
func OpenSqliteRepository(path string) (*SqliteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SqliteRepository{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SqliteRepository) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SqliteRepository) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	return s.queryOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id.String())
}

func (s *SqliteRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.queryOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
}

func (s *SqliteRepository) FindByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}
	return s.queryOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE external_id = ?`, externalID)
}

func (s *SqliteRepository) Create(ctx context.Context, i *Identity) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID.String(),
		i.DisplayName,
		i.Email,
		utils.ToNullString(i.PasswordHash),
		utils.ToNullString(i.ExternalID),
		string(i.AuthMethod),
		utils.ToNullString(i.ProfilePictureURL),
		i.EmailVerified,
		utils.ToNullString(i.VerificationCode),
		nullMillis(i.VerificationCodeExpiry),
		toMillis(i.CreatedAt),
		toMillis(i.UpdatedAt),
	)
	return mapSqliteError(err)
}

func (s *SqliteRepository) Update(ctx context.Context, i *Identity) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE identities SET
		   display_name = ?,
		   email = ?,
		   password_hash = ?,
		   external_id = ?,
		   auth_method = ?,
		   profile_picture_url = ?,
		   email_verified = ?,
		   verification_code = ?,
		   verification_code_expiry = ?,
		   updated_at = ?
		 WHERE id = ?`,
		i.DisplayName,
		i.Email,
		utils.ToNullString(i.PasswordHash),
		utils.ToNullString(i.ExternalID),
		string(i.AuthMethod),
		utils.ToNullString(i.ProfilePictureURL),
		i.EmailVerified,
		utils.ToNullString(i.VerificationCode),
		nullMillis(i.VerificationCodeExpiry),
		toMillis(i.UpdatedAt),
		i.ID.String(),
	)
	if err != nil {
		return mapSqliteError(err)
	}
	return requireRow(res)
}

func (s *SqliteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteRepository) queryOne(ctx context.Context, query string, args ...any) (*Identity, error) {
	var (
		i                                               Identity
		id                                              string
		passwordHash, externalID, picture, code, method sql.NullString
		expiry                                          sql.NullInt64
		createdAt, updatedAt                            int64
	)
	err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(
		&id,
		&i.DisplayName,
		&i.Email,
		&passwordHash,
		&externalID,
		&method,
		&picture,
		&i.EmailVerified,
		&code,
		&expiry,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse identity id: %w", err)
	}
	i.ID = parsed
	i.PasswordHash = utils.FromNullString(passwordHash)
	i.ExternalID = utils.FromNullString(externalID)
	i.AuthMethod = AuthMethod(utils.FromNullString(method))
	i.ProfilePictureURL = utils.FromNullString(picture)
	i.VerificationCode = utils.FromNullString(code)
	if expiry.Valid {
		exp := fromMillis(expiry.Int64)
		i.VerificationCodeExpiry = &exp
	}
	i.CreatedAt = fromMillis(createdAt)
	i.UpdatedAt = fromMillis(updatedAt)
	return &i, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapSqliteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
