package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/utils"
)

// Token is a signed token and its expiry
type Token struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// TokenPair is what a successful login returns. Both tokens are opaque
// strings on the wire; expiries travel in their own fields.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// TokenService issues and verifies access and refresh tokens
type TokenService struct {
	accessSecret       string
	refreshSecret      string
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	clock              utils.Clock

	generators map[TokenClass]*JwtTokenGenerator
}

// NewTokenService creates a token service. The two secrets must be set and
// must differ so a token of one class can never verify as the other.
func NewTokenService(accessSecret, refreshSecret string, opts ...Option) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("access and refresh token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}

	s := &TokenService{
		accessSecret:       accessSecret,
		refreshSecret:      refreshSecret,
		accessTokenExpiry:  DefaultAccessTokenExpiry,
		refreshTokenExpiry: DefaultRefreshTokenExpiry,
		clock:              utils.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.generators = map[TokenClass]*JwtTokenGenerator{
		AccessToken:  s.newGenerator(accessSecret, AccessToken),
		RefreshToken: s.newGenerator(refreshSecret, RefreshToken),
	}

	slog.Info("Token service configured",
		"accessTokenExpiry", s.accessTokenExpiry,
		"refreshTokenExpiry", s.refreshTokenExpiry,
		"issuer", s.issuer)
	return s, nil
}

func (s *TokenService) newGenerator(secret string, class TokenClass) *JwtTokenGenerator {
	g := NewJwtTokenGenerator(secret, s.issuer, s.audience, class)
	g.Clock = s.clock
	return g
}

func (s *TokenService) expiry(class TokenClass) time.Duration {
	if class == RefreshToken {
		return s.refreshTokenExpiry
	}
	return s.accessTokenExpiry
}

// Issue signs a token of the given class for identityID
func (s *TokenService) Issue(identityID uuid.UUID, class TokenClass) (Token, error) {
	g, ok := s.generators[class]
	if !ok {
		return Token{}, fmt.Errorf("unknown token class: %s", class)
	}
	tokenStr, exp, err := g.GenerateToken(identityID.String(), s.expiry(class))
	if err != nil {
		return Token{}, fmt.Errorf("issue %s token: %w", class, err)
	}
	return Token{Token: tokenStr, Expiry: exp}, nil
}

// IssuePair signs an access token and a refresh token for identityID
func (s *TokenService) IssuePair(identityID uuid.UUID) (TokenPair, error) {
	access, err := s.Issue(identityID, AccessToken)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Issue(identityID, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:           access.Token,
		RefreshToken:          refresh.Token,
		AccessTokenExpiresAt:  access.Expiry,
		RefreshTokenExpiresAt: refresh.Expiry,
	}, nil
}

// Verify checks tokenStr as the given class and returns the identity id it
// was issued for. Failures are TOKEN_EXPIRED when the only problem is the
// expiry, and TOKEN_MALFORMED for everything else.
func (s *TokenService) Verify(tokenStr string, class TokenClass) (uuid.UUID, error) {
	g, ok := s.generators[class]
	if !ok {
		return uuid.Nil, apperrors.Newf(apperrors.ErrCodeTokenMalformed, "unknown token class: %s", class)
	}
	if tokenStr == "" {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeTokenMalformed, "token is missing")
	}

	claims, err := g.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "token has expired")
		}
		return uuid.Nil, apperrors.Wrap(err, apperrors.ErrCodeTokenMalformed, "token is invalid")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, apperrors.ErrCodeTokenMalformed, "token subject is invalid")
	}
	return id, nil
}

// AccessTokenExpiry returns the configured access token lifetime
func (s *TokenService) AccessTokenExpiry() time.Duration {
	return s.accessTokenExpiry
}

// RefreshTokenExpiry returns the configured refresh token lifetime
func (s *TokenService) RefreshTokenExpiry() time.Duration {
	return s.refreshTokenExpiry
}
