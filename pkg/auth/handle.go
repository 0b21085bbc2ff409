package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Handle serves the /api/v1/auth endpoints backed by AuthService.
type Handle struct {
	service      *AuthService
	cookieSetter tokengenerator.CookieSetter
}

type HandleOption func(*Handle)

// WithCookieSetter mirrors issued tokens into cookies
func WithCookieSetter(setter tokengenerator.CookieSetter) HandleOption {
	return func(h *Handle) {
		h.cookieSetter = setter
	}
}

func NewHandle(service *AuthService, opts ...HandleOption) Handle {
	h := Handle{service: service}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Routes returns a router with the password, verification, refresh and
// profile endpoints. /profile requires an access token.
func (h Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/resend-verification", h.ResendVerification)
	r.Post("/refresh", h.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(Middleware(h.service))
		r.Get("/profile", h.Profile)
	})
	return r
}

func decode(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		slog.Warn("Failed to decode request body", "path", r.URL.Path, "error", err)
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body")
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return apperrors.InvalidInput(field, field+" is required")
	}
	return nil
}

func (h Handle) setCookies(w http.ResponseWriter, pair tokengenerator.TokenPair) {
	if h.cookieSetter == nil {
		return
	}
	if err := tokengenerator.SetTokenCookies(w, h.cookieSetter, pair); err != nil {
		slog.Error("Failed to set token cookies", "error", err)
	}
}

// Register handles POST /register
func (h Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		RenderError(w, r, err)
		return
	}

	var params RegisterParams
	if err := copier.Copy(&params, &req); err != nil {
		RenderError(w, r, apperrors.InternalWrap(err, "failed to map request"))
		return
	}

	result, err := h.service.Register(r.Context(), params)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	message := "User registered successfully. Please check your email for the verification code."
	if !result.VerificationEmailSent {
		message = "User registered successfully, but the verification email could not be sent. Please request a new code."
	}
	h.setCookies(w, result.TokenPair)
	RenderSuccess(w, r, http.StatusCreated, message, result)
}

// Login handles POST /login
func (h Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		RenderError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "email and password are required"))
		return
	}

	var params LoginParams
	if err := copier.Copy(&params, &req); err != nil {
		RenderError(w, r, apperrors.InternalWrap(err, "failed to map request"))
		return
	}

	result, err := h.service.Login(r.Context(), params)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	h.setCookies(w, result.TokenPair)
	RenderSuccess(w, r, http.StatusOK, "Login successful", result)
}

// VerifyEmail handles POST /verify-email
func (h Handle) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := decode(r, &req); err != nil {
		RenderError(w, r, err)
		return
	}
	if err := required("email", req.Email); err != nil {
		RenderError(w, r, err)
		return
	}
	if err := required("code", req.Code); err != nil {
		RenderError(w, r, err)
		return
	}

	pub, err := h.service.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderSuccess(w, r, http.StatusOK, "Email verified successfully", map[string]interface{}{"user": pub})
}

// ResendVerification handles POST /resend-verification
func (h Handle) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := decode(r, &req); err != nil {
		RenderError(w, r, err)
		return
	}
	if err := required("email", req.Email); err != nil {
		RenderError(w, r, err)
		return
	}

	if err := h.service.ResendVerificationCode(r.Context(), req.Email); err != nil {
		RenderError(w, r, err)
		return
	}

	RenderSuccess(w, r, http.StatusOK, "Verification code sent successfully", nil)
}

// Refresh handles POST /refresh. The token may come from the body or the
// refresh token cookie.
func (h Handle) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			RenderError(w, r, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(tokengenerator.REFRESH_TOKEN_NAME); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if err := required("refreshToken", req.RefreshToken); err != nil {
		RenderError(w, r, err)
		return
	}

	pair, err := h.service.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	h.setCookies(w, *pair)
	RenderSuccess(w, r, http.StatusOK, "Tokens refreshed", pair)
}

// Profile handles GET /profile
func (h Handle) Profile(w http.ResponseWriter, r *http.Request) {
	rec, ok := IdentityFromContext(r.Context())
	if !ok {
		RenderError(w, r, apperrors.New(apperrors.ErrCodeUnauthenticated, "access token required"))
		return
	}

	pub, err := h.service.GetIdentity(r.Context(), rec.ID)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderSuccess(w, r, http.StatusOK, "Profile retrieved successfully", map[string]interface{}{"user": pub})
}
