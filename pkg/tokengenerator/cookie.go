package tokengenerator

import (
	"net/http"
	"time"
)

// Cookie names used when tokens are mirrored into cookies
const (
	ACCESS_TOKEN_NAME  = "access_token"
	REFRESH_TOKEN_NAME = "refresh_token"
)

// CookieSetter interface defines methods for cookie operations
type CookieSetter interface {
	// SetCookie sets a cookie with the given value and expiry
	SetCookie(w http.ResponseWriter, tokenName, tokenValue string, expire time.Time) error

	// ClearCookie clears a cookie
	ClearCookie(w http.ResponseWriter, tokenName string) error
}

// BaseCookieSetter provides a base implementation of CookieSetter
type BaseCookieSetter struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SetCookie sets a cookie with the given value and expiry
func (c *BaseCookieSetter) SetCookie(w http.ResponseWriter, tokenName, tokenValue string, expire time.Time) error {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenName,
		Path:     c.Path,
		Value:    tokenValue,
		Expires:  expire,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
	return nil
}

// ClearCookie clears a cookie
func (c *BaseCookieSetter) ClearCookie(w http.ResponseWriter, tokenName string) error {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenName,
		Path:     c.Path,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
	return nil
}

// NewCookieSetter creates a new cookie setter
func NewCookieSetter(httpOnly, secure bool) CookieSetter {
	return &BaseCookieSetter{
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetTokenCookies writes both tokens of pair as cookies
func SetTokenCookies(w http.ResponseWriter, setter CookieSetter, pair TokenPair) error {
	if err := setter.SetCookie(w, ACCESS_TOKEN_NAME, pair.AccessToken, pair.AccessTokenExpiresAt); err != nil {
		return err
	}
	return setter.SetCookie(w, REFRESH_TOKEN_NAME, pair.RefreshToken, pair.RefreshTokenExpiresAt)
}
