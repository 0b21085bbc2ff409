package password

import (
	"regexp"

	apperrors "github.com/tendant/simple-auth/pkg/errors"
)

// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
const maxPasswordBytes = 72

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Policy defines the requirements for new passwords
type Policy struct {
	MinLength          int
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
}

// DefaultPolicy only enforces a minimum length of 6.
func DefaultPolicy() Policy {
	return Policy{MinLength: 6}
}

// PolicyChecker validates new passwords against a Policy
type PolicyChecker struct {
	policy Policy
}

func NewPolicyChecker(policy Policy) *PolicyChecker {
	return &PolicyChecker{policy: policy}
}

func (pc *PolicyChecker) Policy() Policy {
	return pc.policy
}

// Check returns an INVALID_INPUT error describing the first unmet rule.
func (pc *PolicyChecker) Check(password string) error {
	if password == "" {
		return apperrors.InvalidInput("password", "password is required")
	}
	if len(password) < pc.policy.MinLength {
		return apperrors.Newf(apperrors.ErrCodeInvalidInput, "password must be at least %d characters long", pc.policy.MinLength).
			WithDetail("field", "password")
	}
	if len(password) > maxPasswordBytes {
		return apperrors.Newf(apperrors.ErrCodeInvalidInput, "password must be at most %d bytes long", maxPasswordBytes).
			WithDetail("field", "password")
	}
	if pc.policy.RequireUppercase && !upperPattern.MatchString(password) {
		return apperrors.InvalidInput("password", "must contain at least one uppercase letter")
	}
	if pc.policy.RequireLowercase && !lowerPattern.MatchString(password) {
		return apperrors.InvalidInput("password", "must contain at least one lowercase letter")
	}
	if pc.policy.RequireDigit && !digitPattern.MatchString(password) {
		return apperrors.InvalidInput("password", "must contain at least one digit")
	}
	if pc.policy.RequireSpecialChar && !specialPattern.MatchString(password) {
		return apperrors.InvalidInput("password", "must contain at least one special character")
	}
	return nil
}
