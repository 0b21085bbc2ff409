package externalprovider

import (
	"context"
	"errors"
	"strings"

	"github.com/tendant/simple-auth/pkg/identity"
)

// ErrEmailNotVerified is returned by a Provider whose user has not verified
// the email address with the provider.
var ErrEmailNotVerified = errors.New("email not verified by provider")

// Provider runs the authorization code flow against one external identity
// provider and returns the profile it vouches for.
type Provider interface {
	// ID is the path segment the provider is served under, e.g. "google"
	ID() string
	// AuthCodeURL builds the consent URL carrying state and the PKCE challenge derived from verifier
	AuthCodeURL(state, verifier string) string
	// Exchange trades the authorization code for a verified profile
	Exchange(ctx context.Context, code, verifier string) (*ExternalUserInfo, error)
}

// ExternalUserInfo represents normalized user information from external providers
type ExternalUserInfo struct {
	ProviderID    string `json:"provider_id"`
	ExternalID    string `json:"external_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
}

// Profile converts the provider answer into what the identity engine consumes
func (u *ExternalUserInfo) Profile() identity.ExternalProfile {
	return identity.ExternalProfile{
		ExternalID:  u.ExternalID,
		Email:       strings.TrimSpace(u.Email),
		DisplayName: strings.TrimSpace(u.Name),
		PictureURL:  u.Picture,
	}
}

// OAuth2State is what is remembered between redirecting the user to the
// provider and the provider redirecting back.
type OAuth2State struct {
	State        string `json:"state"`
	Provider     string `json:"provider"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}
