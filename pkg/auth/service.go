package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/utils"
	"github.com/tendant/simple-auth/pkg/verificationcode"
)

// AuthService decides, for each login attempt, external profile or
// verification code, which identity record is created, updated or rejected
// and which tokens or errors result. It keeps no state of its own.
type AuthService struct {
	repo   identity.Repository
	hasher password.Hasher
	codes  CodeGenerator
	tokens TokenIssuer
	mailer notification.Mailer
	clock  utils.Clock
	policy PasswordPolicy
}

// NewAuthService creates the engine. Repository, token service and mailer
// are required; the rest default to bcrypt (cost 10), 10 minute codes, the
// system clock and a minimum password length of 6.
func NewAuthService(opts ...Option) *AuthService {
	s := &AuthService{
		hasher: password.NewBcryptHasher(password.DefaultBcryptCost),
		clock:  utils.RealClock{},
		policy: password.NewPolicyChecker(password.DefaultPolicy()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codes == nil {
		s.codes = verificationcode.NewGenerator(verificationcode.WithClock(s.clock))
	}
	if s.repo == nil {
		panic("auth: repository is required")
	}
	if s.tokens == nil {
		panic("auth: token service is required")
	}
	if s.mailer == nil {
		panic("auth: mailer is required")
	}
	return s
}

// Register creates an unverified password identity and mails it a code.
// An existing unverified registration for the same email is replaced; a
// verified one is a DUPLICATE_IDENTITY.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	if err := identity.ValidateDisplayName(strings.TrimSpace(params.DisplayName)); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(params.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.policy.Check(params.Password); err != nil {
		return nil, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to generate verification code")
	}
	now := s.clock.Now()
	rec, err := identity.NewPasswordIdentity(identity.NewPasswordIdentityParams{
		DisplayName:   params.DisplayName,
		Email:         email,
		Password:      params.Password,
		Code:          code.Value,
		CodeExpiresAt: code.ExpiresAt,
		Now:           now,
	}, s.hasher)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.EmailVerified {
			return nil, apperrors.New(apperrors.ErrCodeDuplicateIdentity, "an account with this email already exists")
		}
		if err := s.repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, identity.ErrNotFound) {
			slog.Error("Failed to delete unverified identity", "identity_id", existing.ID, "error", err)
			return nil, apperrors.StoreUnavailable(err)
		}
		slog.Info("Replacing unverified registration", "identity_id", existing.ID, "email", utils.MaskEmail(email))
	case errors.Is(err, identity.ErrNotFound):
	default:
		slog.Error("Failed to look up identity", "email", utils.MaskEmail(email), "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, identity.ErrDuplicate) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDuplicateIdentity, "an account with this email already exists")
		}
		slog.Error("Failed to create identity", "email", utils.MaskEmail(email), "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	sent := true
	if err := s.mailer.SendVerificationCode(ctx, rec.Email, code.Value, rec.DisplayName); err != nil {
		slog.Error("Failed to send verification email", "identity_id", rec.ID, "error", err)
		sent = false
	}

	pair, err := s.tokens.IssuePair(rec.ID)
	if err != nil {
		slog.Error("Failed to issue tokens", "identity_id", rec.ID, "error", err)
		return nil, apperrors.InternalWrap(err, "failed to issue tokens")
	}

	slog.Info("Identity registered", "identity_id", rec.ID, "verification_email_sent", sent)
	return &RegisterResult{
		LoginResult:           LoginResult{Identity: rec.Public(), TokenPair: pair},
		VerificationEmailSent: sent,
	}, nil
}

// Login checks an email and password. Unknown email, an identity without a
// password and a wrong password all produce the same INVALID_CREDENTIALS.
// Unverified identities may log in.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	email := identity.NormalizeEmail(params.Email)

	rec, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, apperrors.InvalidCredentials()
	}
	if err != nil {
		slog.Error("Failed to look up identity", "email", utils.MaskEmail(email), "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
	if !rec.HasPassword() {
		return nil, apperrors.InvalidCredentials()
	}

	ok, err := s.hasher.Verify(params.Password, rec.PasswordHash)
	if err != nil {
		slog.Warn("Password verification failed", "identity_id", rec.ID, "error", err)
		return nil, apperrors.InvalidCredentials()
	}
	if !ok {
		return nil, apperrors.InvalidCredentials()
	}

	return s.loginResult(rec)
}

// ResolveOrLinkExternalIdentity maps a provider-verified profile to an
// identity: by external id first, then by email (linking the external id to
// that record), else a new external identity. It never fails with not found.
func (s *AuthService) ResolveOrLinkExternalIdentity(ctx context.Context, profile ExternalProfile) (*identity.Identity, error) {
	if strings.TrimSpace(profile.ExternalID) == "" {
		return nil, apperrors.InvalidInput("externalId", "external id is required")
	}

	rec, err := s.repo.FindByExternalID(ctx, profile.ExternalID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		slog.Error("Failed to look up identity by external id", "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	email := identity.NormalizeEmail(profile.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, err
	}

	rec, err = s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.linkExternal(ctx, rec, profile)
	case errors.Is(err, identity.ErrNotFound):
		return s.createExternal(ctx, profile)
	default:
		slog.Error("Failed to look up identity", "email", utils.MaskEmail(email), "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
}

// linkExternal attaches the external id to an existing record. The provider
// vouched for the address, so the record becomes verified.
func (s *AuthService) linkExternal(ctx context.Context, rec *identity.Identity, profile ExternalProfile) (*identity.Identity, error) {
	if rec.ExternalID != "" && rec.ExternalID != profile.ExternalID {
		slog.Warn("Replacing external id on identity", "identity_id", rec.ID)
	}
	rec.ExternalID = profile.ExternalID
	rec.AuthMethod = identity.AuthMethodExternal
	if profile.PictureURL != "" {
		rec.ProfilePictureURL = profile.PictureURL
	}
	rec.MarkVerified()
	rec.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// The record was deleted under us, e.g. by an unverified
			// re-registration. Nothing is left to link to.
			slog.Warn("Identity vanished while linking, creating a new one", "identity_id", rec.ID)
			return s.createExternal(ctx, profile)
		}
		if errors.Is(err, identity.ErrDuplicate) {
			return s.resolveAfterRace(ctx, profile.ExternalID, err)
		}
		slog.Error("Failed to link external identity", "identity_id", rec.ID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	slog.Info("External identity linked", "identity_id", rec.ID)
	return rec, nil
}

func (s *AuthService) createExternal(ctx context.Context, profile ExternalProfile) (*identity.Identity, error) {
	rec, err := identity.NewExternalIdentity(profile, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, identity.ErrDuplicate) {
			return s.resolveAfterRace(ctx, profile.ExternalID, err)
		}
		slog.Error("Failed to create external identity", "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	slog.Info("External identity created", "identity_id", rec.ID)
	return rec, nil
}

// resolveAfterRace handles a concurrent writer that stored the same external
// id (or email) first: return its record when it carries our external id.
func (s *AuthService) resolveAfterRace(ctx context.Context, externalID string, cause error) (*identity.Identity, error) {
	rec, err := s.repo.FindByExternalID(ctx, externalID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return nil, apperrors.StoreUnavailable(err)
	}
	return nil, apperrors.Wrap(cause, apperrors.ErrCodeDuplicateIdentity, "an account with this email already exists")
}

// CompleteExternalLogin resolves the profile and issues tokens like Login.
func (s *AuthService) CompleteExternalLogin(ctx context.Context, profile ExternalProfile) (*LoginResult, error) {
	rec, err := s.ResolveOrLinkExternalIdentity(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.loginResult(rec)
}

// VerifyEmail marks the identity verified when code matches its pending
// code exactly and the code has not expired. The expiry instant counts as
// expired.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*identity.PublicIdentity, error) {
	email = identity.NormalizeEmail(email)

	rec, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, invalidCode()
	}
	if err != nil {
		slog.Error("Failed to look up identity", "email", utils.MaskEmail(email), "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	if !rec.HasPendingCode() || !verificationcode.Equal(rec.VerificationCode, code) {
		return nil, invalidCode()
	}
	now := s.clock.Now()
	if verificationcode.Expired(*rec.VerificationCodeExpiry, now) {
		return nil, apperrors.New(apperrors.ErrCodeVerificationCodeExpired, "verification code has expired")
	}

	rec.MarkVerified()
	rec.UpdatedAt = now
	if err := s.repo.Update(ctx, rec); err != nil {
		slog.Error("Failed to mark email verified", "identity_id", rec.ID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	slog.Info("Email verified", "identity_id", rec.ID)
	pub := rec.Public()
	return &pub, nil
}

// ResendVerificationCode rotates the pending code and mails it. Unlike
// Register, a delivery failure here is returned to the caller.
func (s *AuthService) ResendVerificationCode(ctx context.Context, email string) error {
	email = identity.NormalizeEmail(email)

	rec, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return apperrors.New(apperrors.ErrCodeIdentityNotFound, "no account found for this email")
	}
	if err != nil {
		slog.Error("Failed to look up identity", "email", utils.MaskEmail(email), "error", err)
		return apperrors.StoreUnavailable(err)
	}
	if rec.EmailVerified {
		return apperrors.New(apperrors.ErrCodeAlreadyVerified, "email is already verified")
	}

	code, err := s.codes.Generate()
	if err != nil {
		return apperrors.InternalWrap(err, "failed to generate verification code")
	}
	rec.SetVerificationCode(code.Value, code.ExpiresAt)
	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, rec); err != nil {
		slog.Error("Failed to store verification code", "identity_id", rec.ID, "error", err)
		return apperrors.StoreUnavailable(err)
	}

	if err := s.mailer.SendVerificationCode(ctx, rec.Email, code.Value, rec.DisplayName); err != nil {
		slog.Error("Failed to send verification email", "identity_id", rec.ID, "error", err)
		return apperrors.Wrap(err, apperrors.ErrCodeEmailDeliveryFailed, "failed to send verification email")
	}

	slog.Info("Verification code resent", "identity_id", rec.ID)
	return nil
}

// RefreshTokens exchanges a valid refresh token for a new pair. The identity
// must still exist.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*tokengenerator.TokenPair, error) {
	id, err := s.tokens.Verify(refreshToken, tokengenerator.RefreshToken)
	if err != nil {
		return nil, err
	}
	rec, err := s.lookupAuthenticated(ctx, id)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(rec.ID)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to issue tokens")
	}
	return &pair, nil
}

// Authenticate verifies an access token and returns the current record for
// its subject. Only the subject claim is trusted.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*identity.Identity, error) {
	id, err := s.tokens.Verify(accessToken, tokengenerator.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.lookupAuthenticated(ctx, id)
}

// GetIdentity returns the public projection of the identity with id.
func (s *AuthService) GetIdentity(ctx context.Context, id uuid.UUID) (*identity.PublicIdentity, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeIdentityNotFound, "user not found")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	pub := rec.Public()
	return &pub, nil
}

func (s *AuthService) lookupAuthenticated(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeUnauthenticated, "user no longer exists")
	}
	if err != nil {
		slog.Error("Failed to load identity for token", "identity_id", id, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
	return rec, nil
}

func (s *AuthService) loginResult(rec *identity.Identity) (*LoginResult, error) {
	pair, err := s.tokens.IssuePair(rec.ID)
	if err != nil {
		slog.Error("Failed to issue tokens", "identity_id", rec.ID, "error", err)
		return nil, apperrors.InternalWrap(err, "failed to issue tokens")
	}
	return &LoginResult{Identity: rec.Public(), TokenPair: pair}, nil
}

func invalidCode() error {
	return apperrors.New(apperrors.ErrCodeInvalidVerificationCode, "invalid verification code")
}
