package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/adultna/go-session-gateway/identity"
	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
)

type refreshResponse struct {
	Success               bool       `json:"success"`
	Message               string     `json:"message,omitempty"`
	AccessTokenExpiresAt  *time.Time `json:"accessTokenExpiresAt,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refreshTokenExpiresAt,omitempty"`
}

type meResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	User    *identity.User `json:"user,omitempty"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RefreshHandler rotates the session's credential pair. On success both
// cookies are rewritten, the resident credentials are updated and the
// refresh timer is re-armed from the new expiry. On any failure the session
// is torn down to a clean logged-out state rather than left half-valid.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := s.rotateCredentials(w, r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, refreshResponse{Success: false, Message: "Session expired"})
			return
		}

		writeJSON(w, http.StatusOK, refreshResponse{
			Success:               true,
			AccessTokenExpiresAt:  &result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: &result.RefreshTokenExpiresAt,
		})
	}
}

// RefreshRedirectHandler is the navigation flavour of refresh: the edge
// classifier sends expired page requests here, and the visitor is bounced
// back to where they were headed once the rotation completes. Failure lands
// on the login page.
func (s *Server) RefreshRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.rotateCredentials(w, r); !ok {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, sanitizeRedirect(r.URL.Query().Get(redirectParam)), http.StatusSeeOther)
	}
}

// rotateCredentials performs the shared refresh work. It reports false when
// the session could not be renewed; cookies and resident credentials are
// already cleared by then.
func (s *Server) rotateCredentials(w http.ResponseWriter, r *http.Request) (*identity.RefreshResult, bool) {
	refreshToken := cookieValue(r, s.config.GetRefreshCookieName())
	if refreshToken == "" {
		s.teardownSession(w, r)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.GetProxyTimeout())
	defer cancel()

	result, err := s.identity.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("token refresh rejected")
		s.teardownSession(w, r)
		return nil, false
	}

	s.setSessionCookies(w, r, result.AccessToken, result.RefreshToken,
		result.AccessTokenExpiresAt, result.RefreshTokenExpiresAt)
	s.credentials.Set(result.AccessToken, result.RefreshToken)
	s.scheduler.Schedule(result.AccessTokenExpiresAt)
	return result, true
}

// LogoutHandler ends the session. It always reports success: the visitor
// asked to be logged out, and locally they are, whatever the identity
// service thought of the tokens.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.teardownSession(w, r)
		s.hub.PublishLogout()
		writeJSON(w, http.StatusOK, statusResponse{Success: true})
	}
}

// teardownSession returns the request's browser and the resident session to
// a clean logged-out state.
func (s *Server) teardownSession(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookies(w, r)
	s.credentials.Clear()
	s.scheduler.Cancel()
}

// MeHandler resolves the access cookie to the current user via the identity
// service. A deactivated account gets a distinct message so the front end
// can explain why the session ended.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := cookieValue(r, s.config.GetAccessCookieName())
		if accessToken == "" {
			writeJSON(w, http.StatusUnauthorized, meResponse{Success: false, Message: "Not authenticated"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.config.GetProxyTimeout())
		defer cancel()

		user, err := s.identity.Me(ctx, accessToken)
		if err != nil {
			if gatewayerrors.Is(err, gatewayerrors.ErrUserDeactivated) {
				writeJSON(w, http.StatusUnauthorized, meResponse{Success: false, Message: "Account deactivated"})
				return
			}
			writeJSON(w, http.StatusUnauthorized, meResponse{Success: false, Message: "Not authenticated"})
			return
		}

		writeJSON(w, http.StatusOK, meResponse{Success: true, User: user})
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "ok"})
	}
}

// sanitizeRedirect keeps the post-refresh redirect on this origin. Anything
// that is not a plain local path falls back to the dashboard.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return RouteDashboard
	}
	return target
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
