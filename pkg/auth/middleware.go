package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/identity"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type contextKey string

const identityContextKey contextKey = "auth_identity"

// IdentityFromContext returns the identity stored by Middleware
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	i, ok := ctx.Value(identityContextKey).(*identity.Identity)
	return i, ok && i != nil
}

// WithIdentity stores i in ctx
func WithIdentity(ctx context.Context, i *identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, i)
}

// TokenFromRequest reads a bearer token, falling back to the access token cookie
func TokenFromRequest(r *http.Request) string {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(tokengenerator.ACCESS_TOKEN_NAME); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware authenticates requests with an access token. The identity is
// re-read from the store on every request, so deleted identities lose access
// immediately.
func Middleware(service *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				RenderError(w, r, apperrors.New(apperrors.ErrCodeUnauthenticated, "access token required").
					WithDetail("reason", "missing"))
				return
			}

			rec, err := service.Authenticate(r.Context(), token)
			if err != nil {
				RenderError(w, r, unauthenticated(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), rec)))
		})
	}
}

// unauthenticated folds token failures into UNAUTHENTICATED, keeping which
// check failed as a detail. Store failures pass through.
func unauthenticated(err error) error {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeTokenExpired:
		return apperrors.New(apperrors.ErrCodeUnauthenticated, "access token has expired").WithDetail("reason", "expired")
	case apperrors.ErrCodeTokenMalformed:
		return apperrors.New(apperrors.ErrCodeUnauthenticated, "access token is invalid").WithDetail("reason", "malformed")
	case apperrors.ErrCodeUnauthenticated:
		return apperrors.New(apperrors.ErrCodeUnauthenticated, "user no longer exists").WithDetail("reason", "identity_not_found")
	default:
		return err
	}
}
