package config

import "time"

type GatewayConfig interface {
	GetRefreshMargin() time.Duration
	GetProxyTimeout() time.Duration
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetProtectedPrefixes() []string
	GetPublicAuthPaths() []string
}

type Gateway struct{}

var _ GatewayConfig = Gateway{}

// GetRefreshMargin is how long before access-token expiry the scheduler
// proactively renews.
func (Gateway) GetRefreshMargin() time.Duration {
	return 2 * time.Minute
}

// GetProxyTimeout bounds calls to the external identity service.
func (Gateway) GetProxyTimeout() time.Duration {
	return 15 * time.Second
}

func (Gateway) GetAccessCookieName() string {
	return "access_token"
}

func (Gateway) GetRefreshCookieName() string {
	return "refresh_token"
}

// GetProtectedPrefixes lists path prefixes that require a live session.
func (Gateway) GetProtectedPrefixes() []string {
	return []string{"/dashboard", "/admin", "/auth/onboarding"}
}

// GetPublicAuthPaths lists paths meant only for unauthenticated visitors.
func (Gateway) GetPublicAuthPaths() []string {
	return []string{"/auth/login", "/auth/register", "/auth/verify-email"}
}
