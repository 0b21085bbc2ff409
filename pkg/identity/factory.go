package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
)

// PasswordHasher is the part of password.Hasher the factory needs.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// NewPasswordIdentityParams are the inputs for a password signup. Code and
// CodeExpiresAt are ignored by NewVerifiedPasswordIdentity.
type NewPasswordIdentityParams struct {
	DisplayName   string
	Email         string
	Password      string
	Code          string
	CodeExpiresAt time.Time
	Now           time.Time
}

// NewPasswordIdentity validates the inputs and builds an unverified password
// identity. The plaintext password is hashed exactly once here.
func NewPasswordIdentity(p NewPasswordIdentityParams, hasher PasswordHasher) (*Identity, error) {
	id, err := buildPasswordIdentity(p, hasher, func() error {
		if p.Code == "" {
			return apperrors.Internal("verification code missing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	id.SetVerificationCode(p.Code, p.CodeExpiresAt)
	return id, nil
}

// NewVerifiedPasswordIdentity builds a password identity whose email is
// already trusted, for operator-seeded accounts. No code is pending.
func NewVerifiedPasswordIdentity(p NewPasswordIdentityParams, hasher PasswordHasher) (*Identity, error) {
	id, err := buildPasswordIdentity(p, hasher, nil)
	if err != nil {
		return nil, err
	}
	id.EmailVerified = true
	return id, nil
}

// buildPasswordIdentity runs the shared validation; extra runs after the
// field checks and before hashing.
func buildPasswordIdentity(p NewPasswordIdentityParams, hasher PasswordHasher, extra func() error) (*Identity, error) {
	name := strings.TrimSpace(p.DisplayName)
	if err := ValidateDisplayName(name); err != nil {
		return nil, err
	}
	email := NormalizeEmail(p.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if p.Password == "" {
		return nil, apperrors.InvalidInput("password", "password is required")
	}
	if extra != nil {
		if err := extra(); err != nil {
			return nil, err
		}
	}

	hash, err := hasher.Hash(p.Password)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to hash password")
	}

	return &Identity{
		ID:           uuid.New(),
		DisplayName:  name,
		Email:        email,
		PasswordHash: hash,
		AuthMethod:   AuthMethodPassword,
		CreatedAt:    p.Now,
		UpdatedAt:    p.Now,
	}, nil
}

// ExternalProfile is a profile already verified by an external provider.
type ExternalProfile struct {
	ExternalID  string
	Email       string
	DisplayName string
	PictureURL  string
}

// NewExternalIdentity builds a verified identity with no password. When the
// provider sends no usable name the email local part is used.
func NewExternalIdentity(p ExternalProfile, now time.Time) (*Identity, error) {
	if strings.TrimSpace(p.ExternalID) == "" {
		return nil, apperrors.InvalidInput("externalId", "external id is required")
	}
	email := NormalizeEmail(p.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(p.DisplayName)
	if ValidateDisplayName(name) != nil {
		name = fallbackDisplayName(email)
	}

	return &Identity{
		ID:                uuid.New(),
		DisplayName:       name,
		Email:             email,
		ExternalID:        p.ExternalID,
		AuthMethod:        AuthMethodExternal,
		ProfilePictureURL: p.PictureURL,
		EmailVerified:     true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func fallbackDisplayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	r := []rune(local)
	if len(r) > MaxDisplayNameLength {
		r = r[:MaxDisplayNameLength]
	}
	for len(r) < MinDisplayNameLength {
		r = append(r, '_')
	}
	return string(r)
}
