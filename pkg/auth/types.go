package auth

import (
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type RegisterParams struct {
	DisplayName string
	Email       string
	Password    string
}

type LoginParams struct {
	Email    string
	Password string
}

// ExternalProfile is a provider-verified profile handed to the engine.
type ExternalProfile = identity.ExternalProfile

// LoginResult is returned by every successful login path. The token pair
// is embedded so accessToken and refreshToken sit next to user.
type LoginResult struct {
	Identity identity.PublicIdentity `json:"user"`
	tokengenerator.TokenPair
}

// RegisterResult adds whether the verification email went out. A failed
// send does not fail registration; the caller can request a resend.
type RegisterResult struct {
	LoginResult
	VerificationEmailSent bool `json:"verificationEmailSent"`
}
