package externalprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	GoogleProviderID = "google"
	GoogleIssuer     = "https://accounts.google.com"
)

// GoogleConfig holds the OAuth client registration for Google
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleProvider implements Provider with Google's OpenID Connect endpoints.
// The profile comes from the verified id_token, not from the userinfo API.
type GoogleProvider struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider discovers Google's endpoints and signing keys.
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.ClientID == "" || config.ClientSecret == "" || config.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	p, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	return newGoogleProvider(config, p.Endpoint(), p.Verifier(&oidc.Config{ClientID: config.ClientID})), nil
}

func newGoogleProvider(config GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
	}
}

func (g *GoogleProvider) ID() string {
	return GoogleProviderID
}

func (g *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (g *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*ExternalUserInfo, error) {
	token, err := g.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google did not return id_token")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("google id_token missing required claims")
	}

	slog.Info("Google id_token verified", "email_verified", claims.EmailVerified, "expiry", idToken.Expiry)
	if !claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &ExternalUserInfo{
		ProviderID:    GoogleProviderID,
		ExternalID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
