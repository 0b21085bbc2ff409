package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/utils"
	"github.com/tendant/simple-auth/pkg/verificationcode"
	"golang.org/x/crypto/bcrypt"
)

var startTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type sentCode struct {
	To, Code, Name string
}

// fakeMailer records codes; set err to simulate delivery failure
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendVerificationCode(ctx context.Context, to, code, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{To: to, Code: code, Name: displayName})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// MockRepository is a testify mock of identity.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*identity.Identity)
	return rec, args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	args := m.Called(ctx, email)
	rec, _ := args.Get(0).(*identity.Identity)
	return rec, args.Error(1)
}

func (m *MockRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.Identity, error) {
	args := m.Called(ctx, externalID)
	rec, _ := args.Get(0).(*identity.Identity)
	return rec, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, i *identity.Identity) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockRepository) Update(ctx context.Context, i *identity.Identity) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type testEnv struct {
	svc    *AuthService
	repo   identity.Repository
	mailer *fakeMailer
	clock  *utils.FixedClock
	tokens *tokengenerator.TokenService
}

func newTestEnv(t *testing.T, repo identity.Repository) *testEnv {
	t.Helper()
	if repo == nil {
		repo = identity.NewInMemoryRepository()
	}
	clock := utils.NewFixedClock(startTime)
	tokens, err := tokengenerator.NewTokenService("access-secret", "refresh-secret", tokengenerator.WithClock(clock))
	require.NoError(t, err)
	mailer := &fakeMailer{}

	svc := NewAuthService(
		WithRepository(repo),
		WithHasher(password.NewBcryptHasher(bcrypt.MinCost)),
		WithCodeGenerator(verificationcode.NewGenerator(verificationcode.WithClock(clock))),
		WithTokenService(tokens),
		WithMailer(mailer),
		WithClock(clock),
	)
	return &testEnv{svc: svc, repo: repo, mailer: mailer, clock: clock, tokens: tokens}
}

func (e *testEnv) register(t *testing.T, email string) *RegisterResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterParams{
		DisplayName: "Alice",
		Email:       email,
		Password:    "secret1",
	})
	require.NoError(t, err)
	return res
}

func TestNewAuthServiceRequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewAuthService() })
	assert.Panics(t, func() { NewAuthService(WithRepository(identity.NewInMemoryRepository())) })
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified identity and sends code", func(t *testing.T) {
		env := newTestEnv(t, nil)
		res, err := env.svc.Register(ctx, RegisterParams{DisplayName: " Alice ", Email: "Alice@Example.com", Password: "secret1"})
		require.NoError(t, err)

		assert.True(t, res.VerificationEmailSent)
		assert.Equal(t, "alice@example.com", res.Identity.Email)
		assert.Equal(t, "Alice", res.Identity.DisplayName)
		assert.False(t, res.Identity.EmailVerified)
		assert.Equal(t, identity.AuthMethodPassword, res.Identity.AuthMethod)
		assert.Equal(t, startTime, res.Identity.CreatedAt)

		rec, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "secret1", rec.PasswordHash)
		require.True(t, rec.HasPendingCode())
		assert.Equal(t, startTime.Add(10*time.Minute), *rec.VerificationCodeExpiry)

		sent := env.mailer.last(t)
		assert.Equal(t, "alice@example.com", sent.To)
		assert.Equal(t, rec.VerificationCode, sent.Code)
		assert.Equal(t, "Alice", sent.Name)

		id, err := env.tokens.Verify(res.AccessToken, tokengenerator.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, id)
		id, err = env.tokens.Verify(res.RefreshToken, tokengenerator.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, id)
	})

	t.Run("verified email is a duplicate", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		_, err := env.svc.VerifyEmail(ctx, "alice@example.com", env.mailer.last(t).Code)
		require.NoError(t, err)

		_, err = env.svc.Register(ctx, RegisterParams{DisplayName: "Other", Email: "ALICE@example.com", Password: "secret2"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateIdentity))
	})

	t.Run("external identity email is a duplicate", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.ResolveOrLinkExternalIdentity(ctx, ExternalProfile{ExternalID: "g-1", Email: "bob@example.com", DisplayName: "Bob"})
		require.NoError(t, err)

		_, err = env.svc.Register(ctx, RegisterParams{DisplayName: "Bob", Email: "bob@example.com", Password: "secret1"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateIdentity))
	})

	t.Run("unverified registration is replaced", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first := env.register(t, "alice@example.com")
		firstCode := env.mailer.last(t).Code

		env.clock.Advance(time.Minute)
		second, err := env.svc.Register(ctx, RegisterParams{DisplayName: "Alice Two", Email: "alice@example.com", Password: "another1"})
		require.NoError(t, err)
		assert.NotEqual(t, first.Identity.ID, second.Identity.ID)

		_, err = env.repo.FindByID(ctx, first.Identity.ID)
		assert.ErrorIs(t, err, identity.ErrNotFound)

		rec, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Alice Two", rec.DisplayName)
		assert.Equal(t, startTime.Add(11*time.Minute), *rec.VerificationCodeExpiry)
		assert.Equal(t, 2, env.mailer.count())

		// old password no longer works
		_, err = env.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "secret1"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCredentials))
		if firstCode != rec.VerificationCode {
			_, err = env.svc.VerifyEmail(ctx, "alice@example.com", firstCode)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode))
		}
	})

	t.Run("mail failure does not fail registration", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.mailer.err = errors.New("smtp down")

		res, err := env.svc.Register(ctx, RegisterParams{DisplayName: "Alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.False(t, res.VerificationEmailSent)
		assert.NotEmpty(t, res.AccessToken)

		_, err = env.repo.FindByEmail(ctx, "alice@example.com")
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cases := map[string]RegisterParams{
			"short name":     {DisplayName: "A", Email: "a@example.com", Password: "secret1"},
			"bad email":      {DisplayName: "Alice", Email: "nope", Password: "secret1"},
			"short password": {DisplayName: "Alice", Email: "a@example.com", Password: "12345"},
		}
		for name, params := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := env.svc.Register(ctx, params)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
			})
		}
		assert.Equal(t, 0, env.mailer.count())
	})

	t.Run("invalid input never deletes the unverified record", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first := env.register(t, "alice@example.com")

		_, err := env.svc.Register(ctx, RegisterParams{DisplayName: "A", Email: "alice@example.com", Password: "secret1"})
		require.Error(t, err)

		_, err = env.repo.FindByID(ctx, first.Identity.ID)
		assert.NoError(t, err)
	})

	t.Run("concurrent registrations yield one identity", func(t *testing.T) {
		env := newTestEnv(t, nil)
		var wg sync.WaitGroup
		errs := make(chan error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.svc.Register(ctx, RegisterParams{DisplayName: "Alice", Email: "race@example.com", Password: "secret1"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateIdentity), err.Error())
			}
		}
		_, err := env.repo.FindByEmail(ctx, "race@example.com")
		assert.NoError(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("connection refused"))
		env := newTestEnv(t, repo)

		_, err := env.svc.Register(ctx, RegisterParams{DisplayName: "Alice", Email: "alice@example.com", Password: "secret1"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
		repo.AssertExpectations(t)
	})

	t.Run("create conflict maps to duplicate", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, identity.ErrNotFound)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.Identity")).Return(identity.ErrDuplicate)
		env := newTestEnv(t, repo)

		_, err := env.svc.Register(ctx, RegisterParams{DisplayName: "Alice", Email: "alice@example.com", Password: "secret1"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateIdentity))
		assert.Equal(t, 0, env.mailer.count())
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success without verification", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "alice@example.com")

		res, err := env.svc.Login(ctx, LoginParams{Email: " ALICE@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, reg.Identity.ID, res.Identity.ID)
		assert.False(t, res.Identity.EmailVerified)

		id, err := env.tokens.Verify(res.AccessToken, tokengenerator.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, reg.Identity.ID, id)
	})

	t.Run("failures are indistinguishable", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		_, err := env.svc.ResolveOrLinkExternalIdentity(ctx, ExternalProfile{ExternalID: "g-1", Email: "bob@example.com", DisplayName: "Bob"})
		require.NoError(t, err)

		attempts := []LoginParams{
			{Email: "nobody@example.com", Password: "secret1"},
			{Email: "alice@example.com", Password: "wrong-password"},
			{Email: "bob@example.com", Password: "secret1"},
			{Email: "alice@example.com", Password: ""},
		}
		var messages []string
		for _, p := range attempts {
			_, err := env.svc.Login(ctx, p)
			require.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCredentials), p.Email)
			messages = append(messages, apperrors.PublicMessage(err))
		}
		for _, m := range messages {
			assert.Equal(t, messages[0], m)
		}
	})

	t.Run("store failure is not a credential failure", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("timeout"))
		env := newTestEnv(t, repo)

		_, err := env.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "secret1"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
	})

	t.Run("does not mutate", func(t *testing.T) {
		repo := &MockRepository{}
		env := newTestEnv(t, repo)
		hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
		require.NoError(t, err)
		rec := &identity.Identity{ID: uuid.New(), Email: "alice@example.com", DisplayName: "Alice", PasswordHash: string(hash), AuthMethod: identity.AuthMethodPassword}
		repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(rec, nil)

		_, err = env.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestResolveOrLinkExternalIdentity(t *testing.T) {
	ctx := context.Background()
	profile := ExternalProfile{ExternalID: "google-42", Email: "Carol@Example.com", DisplayName: "Carol", PictureURL: "https://example.com/c.png"}

	t.Run("creates new external identity", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", rec.Email)
		assert.Equal(t, identity.AuthMethodExternal, rec.AuthMethod)
		assert.True(t, rec.EmailVerified)
		assert.False(t, rec.HasPassword())
		assert.Equal(t, "https://example.com/c.png", rec.ProfilePictureURL)
	})

	t.Run("returns existing by external id unchanged", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		require.NoError(t, err)

		env.clock.Advance(time.Hour)
		changed := profile
		changed.Email = "new-address@example.com"
		changed.DisplayName = "Caroline"
		again, err := env.svc.ResolveOrLinkExternalIdentity(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "carol@example.com", again.Email)
		assert.Equal(t, "Carol", again.DisplayName)
		assert.Equal(t, first.UpdatedAt, again.UpdatedAt)
	})

	t.Run("links password identity by email", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "carol@example.com")
		env.clock.Advance(time.Minute)

		rec, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, reg.Identity.ID, rec.ID)
		assert.Equal(t, "google-42", rec.ExternalID)
		assert.Equal(t, identity.AuthMethodExternal, rec.AuthMethod)
		assert.Equal(t, "https://example.com/c.png", rec.ProfilePictureURL)
		assert.True(t, rec.EmailVerified)
		assert.False(t, rec.HasPendingCode())
		assert.True(t, rec.HasPassword())

		stored, err := env.repo.FindByExternalID(ctx, "google-42")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, stored.ID)
		assert.Equal(t, startTime.Add(time.Minute), stored.UpdatedAt)

		// password login keeps working after linking
		_, err = env.svc.Login(ctx, LoginParams{Email: "carol@example.com", Password: "secret1"})
		assert.NoError(t, err)
	})

	t.Run("keeps picture when provider sends none", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first, err := env.svc.ResolveOrLinkExternalIdentity(ctx, ExternalProfile{ExternalID: "g-a", Email: "dan@example.com", DisplayName: "Dan", PictureURL: "https://example.com/d.png"})
		require.NoError(t, err)
		rec, err := env.svc.ResolveOrLinkExternalIdentity(ctx, ExternalProfile{ExternalID: "g-b", Email: "dan@example.com"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, rec.ID)
		assert.Equal(t, "g-b", rec.ExternalID)
		assert.Equal(t, "https://example.com/d.png", rec.ProfilePictureURL)
	})

	t.Run("requires external id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.ResolveOrLinkExternalIdentity(ctx, ExternalProfile{Email: "carol@example.com"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
	})

	t.Run("lost create race returns winner", func(t *testing.T) {
		repo := &MockRepository{}
		winner := &identity.Identity{ID: uuid.New(), Email: "carol@example.com", ExternalID: "google-42", AuthMethod: identity.AuthMethodExternal, EmailVerified: true}
		repo.On("FindByExternalID", mock.Anything, "google-42").Return(nil, identity.ErrNotFound).Once()
		repo.On("FindByEmail", mock.Anything, "carol@example.com").Return(nil, identity.ErrNotFound)
		repo.On("Create", mock.Anything, mock.Anything).Return(identity.ErrDuplicate)
		repo.On("FindByExternalID", mock.Anything, "google-42").Return(winner, nil).Once()
		env := newTestEnv(t, repo)

		rec, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, rec.ID)
		repo.AssertExpectations(t)
	})

	t.Run("record deleted while linking creates a new identity", func(t *testing.T) {
		repo := &MockRepository{}
		stale := &identity.Identity{ID: uuid.New(), DisplayName: "Carol", Email: "carol@example.com", PasswordHash: "hash", AuthMethod: identity.AuthMethodPassword}
		repo.On("FindByExternalID", mock.Anything, "google-42").Return(nil, identity.ErrNotFound)
		repo.On("FindByEmail", mock.Anything, "carol@example.com").Return(stale, nil)
		repo.On("Update", mock.Anything, mock.AnythingOfType("*identity.Identity")).Return(identity.ErrNotFound)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.Identity")).Return(nil)
		env := newTestEnv(t, repo)

		rec, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		require.NoError(t, err)
		assert.NotEqual(t, stale.ID, rec.ID)
		assert.Equal(t, "google-42", rec.ExternalID)
		assert.Equal(t, identity.AuthMethodExternal, rec.AuthMethod)
		assert.True(t, rec.EmailVerified)
		repo.AssertCalled(t, "Create", mock.Anything, mock.AnythingOfType("*identity.Identity"))
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByExternalID", mock.Anything, "google-42").Return(nil, errors.New("down"))
		env := newTestEnv(t, repo)

		_, err := env.svc.ResolveOrLinkExternalIdentity(ctx, profile)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
	})
}

func TestCompleteExternalLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	res, err := env.svc.CompleteExternalLogin(context.Background(), ExternalProfile{ExternalID: "g-7", Email: "erin@example.com", DisplayName: "Erin"})
	require.NoError(t, err)
	assert.True(t, res.Identity.EmailVerified)

	id, err := env.tokens.Verify(res.AccessToken, tokengenerator.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.ID, id)
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears code", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		code := env.mailer.last(t).Code

		env.clock.Advance(10*time.Minute - time.Second)
		pub, err := env.svc.VerifyEmail(ctx, "Alice@example.com", code)
		require.NoError(t, err)
		assert.True(t, pub.EmailVerified)

		rec, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, rec.EmailVerified)
		assert.Empty(t, rec.VerificationCode)
		assert.Nil(t, rec.VerificationCodeExpiry)

		// second attempt: nothing pending
		_, err = env.svc.VerifyEmail(ctx, "alice@example.com", code)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode))
	})

	t.Run("expiry instant is expired", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		code := env.mailer.last(t).Code

		env.clock.Advance(10 * time.Minute)
		_, err := env.svc.VerifyEmail(ctx, "alice@example.com", code)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeVerificationCodeExpired))

		rec, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.False(t, rec.EmailVerified)
	})

	t.Run("code must match exactly", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		code := env.mailer.last(t).Code

		for _, attempt := range []string{" " + code, code + "\n", " " + code + " "} {
			_, err := env.svc.VerifyEmail(ctx, "alice@example.com", attempt)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode), "attempt %q", attempt)
		}

		rec, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.False(t, rec.EmailVerified)

		_, err = env.svc.VerifyEmail(ctx, "alice@example.com", code)
		assert.NoError(t, err)
	})

	t.Run("wrong code", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		code := env.mailer.last(t).Code
		wrong := "000000"
		if code == wrong {
			wrong = "999999"
		}
		_, err := env.svc.VerifyEmail(ctx, "alice@example.com", wrong)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode))
	})

	t.Run("wrong code after expiry is still invalid", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		code := env.mailer.last(t).Code
		wrong := "000000"
		if code == wrong {
			wrong = "999999"
		}
		env.clock.Advance(time.Hour)
		_, err := env.svc.VerifyEmail(ctx, "alice@example.com", wrong)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode))
	})

	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.VerifyEmail(ctx, "nobody@example.com", "123456")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidVerificationCode))
	})
}

func TestResendVerificationCode(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates code and expiry", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		before, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)

		env.clock.Advance(20 * time.Minute)
		require.NoError(t, env.svc.ResendVerificationCode(ctx, "ALICE@example.com"))

		after, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, startTime.Add(30*time.Minute), *after.VerificationCodeExpiry)
		assert.Equal(t, after.VerificationCode, env.mailer.last(t).Code)
		assert.Equal(t, 2, env.mailer.count())
		assert.Equal(t, before.ID, after.ID)

		_, err = env.svc.VerifyEmail(ctx, "alice@example.com", after.VerificationCode)
		assert.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t, nil)
		err := env.svc.ResendVerificationCode(ctx, "nobody@example.com")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityNotFound))
	})

	t.Run("already verified leaves record untouched", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		_, err := env.svc.VerifyEmail(ctx, "alice@example.com", env.mailer.last(t).Code)
		require.NoError(t, err)
		before, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)

		env.clock.Advance(time.Minute)
		err = env.svc.ResendVerificationCode(ctx, "alice@example.com")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyVerified))

		after, err := env.repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, 1, env.mailer.count())
	})

	t.Run("delivery failure is reported", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.register(t, "alice@example.com")
		env.mailer.err = errors.New("smtp down")

		err := env.svc.ResendVerificationCode(ctx, "alice@example.com")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmailDeliveryFailed))
	})
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("issues new pair", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "alice@example.com")

		env.clock.Advance(time.Hour)
		pair, err := env.svc.RefreshTokens(ctx, reg.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, startTime.Add(time.Hour+30*time.Minute), pair.AccessTokenExpiresAt)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "alice@example.com")
		_, err := env.svc.RefreshTokens(ctx, reg.AccessToken)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTokenMalformed))
	})

	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "alice@example.com")
		env.clock.Advance(7 * 24 * time.Hour)
		_, err := env.svc.RefreshTokens(ctx, reg.RefreshToken)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTokenExpired))
	})

	t.Run("deleted identity", func(t *testing.T) {
		env := newTestEnv(t, nil)
		reg := env.register(t, "alice@example.com")
		require.NoError(t, env.repo.Delete(ctx, reg.Identity.ID))
		_, err := env.svc.RefreshTokens(ctx, reg.RefreshToken)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated))
	})
}

func TestGetIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "alice@example.com")

	pub, err := env.svc.GetIdentity(context.Background(), reg.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Identity, *pub)

	_, err = env.svc.GetIdentity(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityNotFound))
}
