package auth

import (
	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/utils"
	"github.com/tendant/simple-auth/pkg/verificationcode"
)

// CodeGenerator issues verification codes with their expiry
type CodeGenerator interface {
	Generate() (verificationcode.Code, error)
}

// TokenIssuer issues and checks access and refresh tokens
type TokenIssuer interface {
	IssuePair(identityID uuid.UUID) (tokengenerator.TokenPair, error)
	Verify(tokenStr string, class tokengenerator.TokenClass) (uuid.UUID, error)
}

// PasswordPolicy validates a plaintext password before it is hashed
type PasswordPolicy interface {
	Check(password string) error
}

// Option configures an AuthService
type Option func(*AuthService)

func WithRepository(repo identity.Repository) Option {
	return func(s *AuthService) {
		s.repo = repo
	}
}

func WithHasher(hasher password.Hasher) Option {
	return func(s *AuthService) {
		s.hasher = hasher
	}
}

func WithCodeGenerator(codes CodeGenerator) Option {
	return func(s *AuthService) {
		s.codes = codes
	}
}

func WithTokenService(tokens TokenIssuer) Option {
	return func(s *AuthService) {
		s.tokens = tokens
	}
}

func WithMailer(mailer notification.Mailer) Option {
	return func(s *AuthService) {
		s.mailer = mailer
	}
}

func WithClock(clock utils.Clock) Option {
	return func(s *AuthService) {
		s.clock = clock
	}
}

func WithPasswordPolicy(policy PasswordPolicy) Option {
	return func(s *AuthService) {
		s.policy = policy
	}
}
