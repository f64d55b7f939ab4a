package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	identityURLVar = "IDENTITY_BASE_URL"
	upstreamURLVar = "UPSTREAM_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Gateway")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public base URL of the gateway itself
// (e.g., "https://app.example.com"). Used when building absolute redirects.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetIdentityBaseURL returns the base URL of the external identity service
// the gateway proxies refresh and who-am-i calls to.
func (EnvVars) GetIdentityBaseURL() string {
	return GetEnv(identityURLVar, "http://localhost:9090")
}

// GetUpstreamURL returns the application origin page requests are proxied
// to after classification. Empty disables proxying (API-only mode).
func (EnvVars) GetUpstreamURL() string {
	return GetEnv(upstreamURLVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
