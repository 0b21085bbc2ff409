package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/utils"
)

// TokenClass separates access tokens from refresh tokens. Each class is
// signed with its own secret and carries its class in the typ claim.
type TokenClass string

const (
	AccessToken  TokenClass = "access"
	RefreshToken TokenClass = "refresh"
)

// Claims struct for JWT claims
type Claims struct {
	Type TokenClass `json:"typ"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator signs and parses HS256 tokens of a single class
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	Class    TokenClass
	Clock    utils.Clock
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string, class TokenClass) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		Class:    class,
		Clock:    utils.RealClock{},
	}
}

// GenerateToken creates a new token for subject valid for expiry
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration) (string, time.Time, error) {
	now := g.Clock.Now()
	claims := Claims{
		Type: g.Class,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "class", g.Class, "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken verifies signature, time claims, issuer, audience and class.
// Errors are the jwt package's, so callers can test for jwt.ErrTokenExpired.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.Clock.Now),
		jwt.WithExpirationRequired(),
	}
	if g.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.Issuer))
	}
	if g.Audience != "" {
		opts = append(opts, jwt.WithAudience(g.Audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims.Type != g.Class {
		return nil, fmt.Errorf("%w: token class %q, want %q", jwt.ErrTokenInvalidClaims, claims.Type, g.Class)
	}
	return claims, nil
}
