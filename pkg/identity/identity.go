package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
)

// AuthMethod records how an identity was first established.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodExternal AuthMethod = "external"
)

const (
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 50
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Identity is the stored user record. Secret fields never leave the process
// in JSON; use Public for anything sent to a client.
type Identity struct {
	ID                     uuid.UUID  `json:"id"`
	DisplayName            string     `json:"display_name"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	ExternalID             string     `json:"external_id,omitempty"`
	AuthMethod             AuthMethod `json:"auth_method"`
	ProfilePictureURL      string     `json:"profile_picture_url,omitempty"`
	EmailVerified          bool       `json:"email_verified"`
	VerificationCode       string     `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// PublicIdentity is the client-facing projection of an Identity.
type PublicIdentity struct {
	ID                uuid.UUID  `json:"id"`
	DisplayName       string     `json:"displayName"`
	Email             string     `json:"email"`
	EmailVerified     bool       `json:"emailVerified"`
	ProfilePictureURL string     `json:"profilePictureUrl,omitempty"`
	AuthMethod        AuthMethod `json:"authMethod"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:                i.ID,
		DisplayName:       i.DisplayName,
		Email:             i.Email,
		EmailVerified:     i.EmailVerified,
		ProfilePictureURL: i.ProfilePictureURL,
		AuthMethod:        i.AuthMethod,
		CreatedAt:         i.CreatedAt,
	}
}

// HasPassword reports whether password login is possible for this identity.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// HasPendingCode reports whether a verification code is outstanding.
func (i *Identity) HasPendingCode() bool {
	return i.VerificationCode != "" && i.VerificationCodeExpiry != nil
}

// SetVerificationCode sets code and expiry together.
func (i *Identity) SetVerificationCode(code string, expiresAt time.Time) {
	exp := expiresAt
	i.VerificationCode = code
	i.VerificationCodeExpiry = &exp
}

// ClearVerificationCode removes code and expiry together.
func (i *Identity) ClearVerificationCode() {
	i.VerificationCode = ""
	i.VerificationCodeExpiry = nil
}

// MarkVerified sets EmailVerified and drops any pending code.
func (i *Identity) MarkVerified() {
	i.EmailVerified = true
	i.ClearVerificationCode()
}

// Clone returns a deep copy so adapters never share pointers with callers.
func (i *Identity) Clone() *Identity {
	c := *i
	if i.VerificationCodeExpiry != nil {
		exp := *i.VerificationCodeExpiry
		c.VerificationCodeExpiry = &exp
	}
	return &c
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks address syntax on an already normalized email.
func ValidateEmail(email string) error {
	if email == "" {
		return apperrors.InvalidInput("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.InvalidInput("email", "invalid format")
	}
	return nil
}

// ValidateDisplayName checks an already trimmed display name.
func ValidateDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return apperrors.InvalidInput("displayName", "display name is required")
	}
	if n < MinDisplayNameLength || n > MaxDisplayNameLength {
		return apperrors.InvalidInput("displayName", "must be between 2 and 50 characters")
	}
	return nil
}
