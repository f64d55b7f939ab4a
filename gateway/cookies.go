package gateway

import (
	"net/http"
	"time"
)

// setSessionCookies writes the renewed credential pair. Both cookies are
// HTTP-only and Lax so the browser attaches them on top-level navigations
// but scripts never read them; Secure is keyed off the effective scheme so
// local development over plain HTTP still works.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, accessToken, refreshToken string, accessExpiry, refreshExpiry time.Time) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetAccessCookieName(),
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  accessExpiry,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetRefreshCookieName(),
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  refreshExpiry,
	})
}

// clearSessionCookies expires both cookies immediately.
func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	isSecure := getScheme(r) == "https"

	for _, name := range []string{s.config.GetAccessCookieName(), s.config.GetRefreshCookieName()} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
