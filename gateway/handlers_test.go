package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adultna/go-session-gateway/broadcast"
	"github.com/adultna/go-session-gateway/identity"
	"github.com/adultna/go-session-gateway/identity/identityfake"
	"github.com/adultna/go-session-gateway/internal/config"
	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
)

func newTestServer(t *testing.T) (*Server, *identityfake.FakeService) {
	t.Helper()
	fake := identityfake.NewFakeService()
	srv, err := New(config.New(), fake)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)
	return srv, fake
}

func freshResult() *identity.RefreshResult {
	return &identity.RefreshResult{
		AccessToken:           "new-access",
		RefreshToken:          "new-refresh",
		AccessTokenExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshTokenExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
}

func responseCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRefreshHandler(t *testing.T) {
	t.Run("success rotates cookies and resident credentials", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.Result = freshResult()

		r := httptest.NewRequest(http.MethodPost, RouteAPIRefresh, nil)
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)

		var body refreshResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.True(t, body.Success)
		require.NotNil(t, body.AccessTokenExpiresAt)

		access := responseCookie(t, w, "access_token")
		require.NotNil(t, access)
		require.Equal(t, "new-access", access.Value)
		require.True(t, access.HttpOnly)

		refreshCookie := responseCookie(t, w, "refresh_token")
		require.NotNil(t, refreshCookie)
		require.Equal(t, "new-refresh", refreshCookie.Value)

		require.Equal(t, "new-access", srv.credentials.AccessToken())
		require.Equal(t, "new-refresh", srv.credentials.RefreshToken())
		require.Equal(t, 1, fake.RefreshCalls)
	})

	t.Run("missing refresh cookie ends the session", func(t *testing.T) {
		srv, fake := newTestServer(t)
		srv.credentials.Set("stale-access", "stale-refresh")

		r := httptest.NewRequest(http.MethodPost, RouteAPIRefresh, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, 0, fake.RefreshCalls)
		require.Empty(t, srv.credentials.AccessToken())

		access := responseCookie(t, w, "access_token")
		require.NotNil(t, access)
		require.Empty(t, access.Value)
		require.Equal(t, -1, access.MaxAge)
	})

	t.Run("rejected refresh clears cookies and credentials", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.RefreshErr = gatewayerrors.ErrInvalidRefreshToken
		srv.credentials.Set("stale-access", "stale-refresh")

		r := httptest.NewRequest(http.MethodPost, RouteAPIRefresh, nil)
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "revoked"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)

		var body refreshResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.False(t, body.Success)
		require.Empty(t, srv.credentials.RefreshToken())
	})
}

func TestRefreshRedirectHandler(t *testing.T) {
	t.Run("success bounces back to the original destination", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.Result = freshResult()

		r := httptest.NewRequest(http.MethodGet, RouteAPIRefresh+"?redirect=%2Fdashboard%2Fsettings", nil)
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/dashboard/settings", w.Header().Get("Location"))
		require.NotNil(t, responseCookie(t, w, "access_token"))
	})

	t.Run("offsite redirect target falls back to dashboard", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.Result = freshResult()

		r := httptest.NewRequest(http.MethodGet, RouteAPIRefresh+"?redirect=%2F%2Fevil.example.com", nil)
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, RouteDashboard, w.Header().Get("Location"))
	})

	t.Run("failed refresh lands on login", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.RefreshErr = gatewayerrors.ErrRefreshTokenExpired

		r := httptest.NewRequest(http.MethodGet, RouteAPIRefresh+"?redirect=%2Fdashboard", nil)
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "expired"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, RouteLogin, w.Header().Get("Location"))
	})
}

func TestLogoutHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.credentials.Set("access", "refresh")

	sub := srv.hub.Subscribe()
	defer sub.Close()

	r := httptest.NewRequest(http.MethodPost, RouteAPILogout, nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "access"})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.True(t, body.Success)

	require.Empty(t, srv.credentials.AccessToken())
	require.Equal(t, -1, responseCookie(t, w, "access_token").MaxAge)
	require.Equal(t, -1, responseCookie(t, w, "refresh_token").MaxAge)

	select {
	case event := <-sub.C:
		require.Equal(t, broadcast.EventLogout, event.Type)
	case <-time.After(time.Second):
		t.Fatal("logout event was not broadcast")
	}
}

func TestMeHandler(t *testing.T) {
	t.Run("no access cookie answers 401", func(t *testing.T) {
		srv, fake := newTestServer(t)

		r := httptest.NewRequest(http.MethodGet, RouteAPIMe, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, 0, fake.Calls())
	})

	t.Run("resolves the current user", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.SetUser(&identity.User{ID: "user-1", Email: "ada@example.com", Role: "admin"})

		r := httptest.NewRequest(http.MethodGet, RouteAPIMe, nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "access"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)

		var body meResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.True(t, body.Success)
		require.Equal(t, "ada@example.com", body.User.Email)
		require.Equal(t, []string{"access"}, fake.MeTokens)
	})

	t.Run("deactivated account gets a distinct message", func(t *testing.T) {
		srv, fake := newTestServer(t)
		fake.MeErr = gatewayerrors.ErrUserDeactivated

		r := httptest.NewRequest(http.MethodGet, RouteAPIMe, nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "access"})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)

		var body meResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Equal(t, "Account deactivated", body.Message)
	})
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, RouteHealth, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestPassthroughWithoutUpstream(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/about", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSanitizeRedirect(t *testing.T) {
	require.Equal(t, "/dashboard/settings", sanitizeRedirect("/dashboard/settings"))
	require.Equal(t, RouteDashboard, sanitizeRedirect(""))
	require.Equal(t, RouteDashboard, sanitizeRedirect("https://evil.example.com"))
	require.Equal(t, RouteDashboard, sanitizeRedirect("//evil.example.com"))
}
