package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-auth/pkg/auth"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/externalprovider"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

// Handle serves GET /{provider} and GET /{provider}/callback for every
// registered provider.
type Handle struct {
	externalProviderService *externalprovider.ExternalProviderService
	authService             *auth.AuthService
	cookieSetter            tokengenerator.CookieSetter
}

type HandleOption func(*Handle)

// WithCookieSetter mirrors issued tokens into cookies
func WithCookieSetter(setter tokengenerator.CookieSetter) HandleOption {
	return func(h *Handle) {
		h.cookieSetter = setter
	}
}

func NewHandle(externalProviderService *externalprovider.ExternalProviderService, authService *auth.AuthService, opts ...HandleOption) Handle {
	h := Handle{
		externalProviderService: externalProviderService,
		authService:             authService,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// RegisterRoutes adds the provider routes to r, which is usually the
// router returned by auth.Handle.Routes.
func (h Handle) RegisterRoutes(r chi.Router) {
	for _, id := range h.externalProviderService.ProviderIDs() {
		r.Get("/"+id, h.InitiateOAuth2Flow(id))
		r.Get("/"+id+"/callback", h.HandleOAuth2Callback(id))
	}
}

// InitiateOAuth2Flow redirects to the provider's consent page
func (h Handle) InitiateOAuth2Flow(providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := h.externalProviderService.InitiateOAuth2Flow(r.Context(), providerID, r.URL.Query().Get("redirect_url"))
		if err != nil {
			auth.RenderError(w, r, err)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// HandleOAuth2Callback finishes the flow and answers like a password login
func (h Handle) HandleOAuth2Callback(providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if providerErr := query.Get("error"); providerErr != "" {
			slog.Warn("OAuth2 callback received error", "provider", providerID, "error", providerErr)
			auth.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidCredentials, "authentication was denied or failed").
				WithDetail("providerError", providerErr))
			return
		}

		profile, err := h.externalProviderService.HandleOAuth2Callback(r.Context(), providerID, query.Get("code"), query.Get("state"))
		if err != nil {
			auth.RenderError(w, r, err)
			return
		}

		result, err := h.authService.CompleteExternalLogin(r.Context(), *profile)
		if err != nil {
			auth.RenderError(w, r, err)
			return
		}

		if h.cookieSetter != nil {
			if err := tokengenerator.SetTokenCookies(w, h.cookieSetter, result.TokenPair); err != nil {
				slog.Error("Failed to set token cookies", "error", err)
			}
		}
		auth.RenderSuccess(w, r, http.StatusOK, "External authentication successful", result)
	}
}
