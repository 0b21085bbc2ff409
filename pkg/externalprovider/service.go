package externalprovider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/identity"
)

const DefaultStateExpiration = 10 * time.Minute

// ExternalProviderService starts and finishes authorization code flows. It
// stops at the verified profile; resolving that to an identity is the auth
// engine's job.
type ExternalProviderService struct {
	providers       map[string]Provider
	states          StateStore
	stateExpiration time.Duration
}

// Option is a function that configures an ExternalProviderService
type Option func(*ExternalProviderService)

// WithProvider registers p under p.ID()
func WithProvider(p Provider) Option {
	return func(s *ExternalProviderService) {
		s.providers[p.ID()] = p
	}
}

// WithStateStore replaces the default in-memory state store
func WithStateStore(store StateStore) Option {
	return func(s *ExternalProviderService) {
		s.states = store
	}
}

// WithStateExpiration sets how long a user has to come back from the provider
func WithStateExpiration(duration time.Duration) Option {
	return func(s *ExternalProviderService) {
		if duration > 0 {
			s.stateExpiration = duration
		}
	}
}

func NewExternalProviderService(opts ...Option) *ExternalProviderService {
	service := &ExternalProviderService{
		providers:       make(map[string]Provider),
		stateExpiration: DefaultStateExpiration,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.states == nil {
		service.states = NewInMemoryStateStore(nil)
	}
	return service
}

// ProviderIDs returns the registered provider ids, sorted
func (s *ExternalProviderService) ProviderIDs() []string {
	ids := make([]string, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InitiateOAuth2Flow stores a fresh state and PKCE verifier and returns the
// provider URL to send the user to.
func (s *ExternalProviderService) InitiateOAuth2Flow(ctx context.Context, providerID, redirectURL string) (string, error) {
	provider, ok := s.providers[providerID]
	if !ok {
		return "", apperrors.InvalidInput("provider", "unsupported provider")
	}

	state, err := generateSecureState()
	if err != nil {
		return "", apperrors.InternalWrap(err, "failed to generate state")
	}
	verifier := oauth2.GenerateVerifier()

	err = s.states.Save(ctx, &OAuth2State{
		State:        state,
		Provider:     providerID,
		CodeVerifier: verifier,
		RedirectURL:  redirectURL,
	}, s.stateExpiration)
	if err != nil {
		slog.Error("Failed to store oauth2 state", "provider", providerID, "error", err)
		return "", apperrors.StoreUnavailable(err)
	}

	slog.Info("OAuth2 flow initiated", "provider", providerID)
	return provider.AuthCodeURL(state, verifier), nil
}

// HandleOAuth2Callback consumes the state and exchanges the code. The state
// is spent even when the exchange fails.
func (s *ExternalProviderService) HandleOAuth2Callback(ctx context.Context, providerID, code, state string) (*identity.ExternalProfile, error) {
	provider, ok := s.providers[providerID]
	if !ok {
		return nil, apperrors.InvalidInput("provider", "unsupported provider")
	}
	if code == "" {
		return nil, apperrors.InvalidInput("code", "authorization code is required")
	}
	if state == "" {
		return nil, apperrors.InvalidInput("state", "state parameter is required")
	}

	stored, err := s.states.Consume(ctx, state)
	if errors.Is(err, ErrStateNotFound) {
		return nil, apperrors.InvalidInput("state", "oauth state is invalid or expired")
	}
	if err != nil {
		slog.Error("Failed to load oauth2 state", "provider", providerID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
	if stored.Provider != providerID {
		slog.Warn("OAuth2 state provider mismatch", "expected", stored.Provider, "got", providerID)
		return nil, apperrors.InvalidInput("state", "oauth state is invalid or expired")
	}

	info, err := provider.Exchange(ctx, code, stored.CodeVerifier)
	if errors.Is(err, ErrEmailNotVerified) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidCredentials, "email address is not verified with the provider")
	}
	if err != nil {
		slog.Error("OAuth2 code exchange failed", "provider", providerID, "error", err)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidCredentials, "external authentication failed")
	}

	profile := info.Profile()
	slog.Info("OAuth2 callback processed successfully", "provider", providerID)
	return &profile, nil
}

// generateSecureState generates a cryptographically secure random state parameter
func generateSecureState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
