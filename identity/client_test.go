package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adultna/go-session-gateway/identity"
	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
)

func TestClient_Me(t *testing.T) {
	t.Run("success returns the user", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/me", r.URL.Path)
			require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"user":{"id":"u-1","email":"a@b.com","role":"member"}}`))
		}))
		defer server.Close()

		user, err := identity.NewClient(server.URL).Me(context.Background(), "token-123")
		require.NoError(t, err)
		require.Equal(t, "u-1", user.ID)
		require.Equal(t, "a@b.com", user.Email)
		require.Equal(t, "member", user.Role)
	})

	t.Run("plain 401 is unauthenticated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"invalid token"}`))
		}))
		defer server.Close()

		_, err := identity.NewClient(server.URL).Me(context.Background(), "bad")
		require.ErrorIs(t, err, gatewayerrors.ErrUnauthenticated)
	})

	t.Run("deactivated account is a distinct condition", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Account deactivated, contact support"}`))
		}))
		defer server.Close()

		_, err := identity.NewClient(server.URL).Me(context.Background(), "token")
		require.ErrorIs(t, err, gatewayerrors.ErrUserDeactivated)
	})

	t.Run("malformed success payload is a failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		_, err := identity.NewClient(server.URL).Me(context.Background(), "token")
		require.ErrorIs(t, err, gatewayerrors.ErrUnauthenticated)
	})

	t.Run("unreachable service", func(t *testing.T) {
		_, err := identity.NewClient("http://127.0.0.1:1").Me(context.Background(), "token")
		require.ErrorIs(t, err, gatewayerrors.ErrIdentityService)
	})
}

func TestClient_Refresh(t *testing.T) {
	accessExpiry := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	refreshExpiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)

	t.Run("success returns renewed pair", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/refresh", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			w.Header().Set("Content-Type", "application/json")
			resp := `{"success":true,"accessToken":"new-access","refreshToken":"new-refresh",` +
				`"accessTokenExpiresAt":"` + accessExpiry.Format(time.RFC3339) + `",` +
				`"refreshTokenExpiresAt":"` + refreshExpiry.Format(time.RFC3339) + `"}`
			w.Write([]byte(resp))
		}))
		defer server.Close()

		result, err := identity.NewClient(server.URL).Refresh(context.Background(), "old-refresh")
		require.NoError(t, err)
		require.Equal(t, "new-access", result.AccessToken)
		require.Equal(t, "new-refresh", result.RefreshToken)
		require.True(t, result.AccessTokenExpiresAt.Equal(accessExpiry))
		require.True(t, result.RefreshTokenExpiresAt.Equal(refreshExpiry))
	})

	t.Run("401 means invalid refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := identity.NewClient(server.URL).Refresh(context.Background(), "expired")
		require.ErrorIs(t, err, gatewayerrors.ErrInvalidRefreshToken)
	})

	t.Run("success flag false means invalid refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false}`))
		}))
		defer server.Close()

		_, err := identity.NewClient(server.URL).Refresh(context.Background(), "whatever")
		require.ErrorIs(t, err, gatewayerrors.ErrInvalidRefreshToken)
	})

	t.Run("call is bounded by the configured timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client := identity.NewClient(server.URL, identity.WithTimeout(50*time.Millisecond))
		start := time.Now()
		_, err := client.Refresh(context.Background(), "token")
		require.Error(t, err)
		require.Less(t, time.Since(start), 5*time.Second)
	})
}
