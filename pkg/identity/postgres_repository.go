package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-auth/pkg/utils"
)

const pgUniqueViolation = "23505"

const identityColumns = `id, display_name, email, password_hash, external_id, auth_method,
	profile_picture_url, email_verified, verification_code, verification_code_expiry,
	created_at, updated_at`

// PostgresRepository stores identities in the identities table
// (see migrations/auth_db.sql).
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE lower(email) = lower($1)`
	return r.queryOne(ctx, query, email)
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + identityColumns + ` FROM identities WHERE external_id = $1`
	return r.queryOne(ctx, query, externalID)
}

func (r *PostgresRepository) Create(ctx context.Context, i *Identity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		i.ID,
		i.DisplayName,
		i.Email,
		utils.ToNullString(i.PasswordHash),
		utils.ToNullString(i.ExternalID),
		string(i.AuthMethod),
		utils.ToNullString(i.ProfilePictureURL),
		i.EmailVerified,
		utils.ToNullString(i.VerificationCode),
		i.VerificationCodeExpiry,
		i.CreatedAt,
		i.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PostgresRepository) Update(ctx context.Context, i *Identity) error {
	query := `
		UPDATE identities SET
			display_name = $2,
			email = $3,
			password_hash = $4,
			external_id = $5,
			auth_method = $6,
			profile_picture_url = $7,
			email_verified = $8,
			verification_code = $9,
			verification_code_expiry = $10,
			updated_at = $11
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		i.ID,
		i.DisplayName,
		i.Email,
		utils.ToNullString(i.PasswordHash),
		utils.ToNullString(i.ExternalID),
		string(i.AuthMethod),
		utils.ToNullString(i.ProfilePictureURL),
		i.EmailVerified,
		utils.ToNullString(i.VerificationCode),
		i.VerificationCodeExpiry,
		i.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*Identity, error) {
	var (
		i                                               Identity
		passwordHash, externalID, picture, code, method sql.NullString
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&i.ID,
		&i.DisplayName,
		&i.Email,
		&passwordHash,
		&externalID,
		&method,
		&picture,
		&i.EmailVerified,
		&code,
		&i.VerificationCodeExpiry,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	i.PasswordHash = utils.FromNullString(passwordHash)
	i.ExternalID = utils.FromNullString(externalID)
	i.AuthMethod = AuthMethod(utils.FromNullString(method))
	i.ProfilePictureURL = utils.FromNullString(picture)
	i.VerificationCode = utils.FromNullString(code)
	if i.VerificationCodeExpiry != nil {
		exp := i.VerificationCodeExpiry.UTC()
		i.VerificationCodeExpiry = &exp
	}
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return &i, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
