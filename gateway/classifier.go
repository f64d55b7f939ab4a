package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/adultna/go-session-gateway/internal/config"
	"github.com/adultna/go-session-gateway/internal/metrics"
	"github.com/adultna/go-session-gateway/token"
)

// Decision is the outcome of classifying a request before it reaches the
// application.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionRedirectLogin
	DecisionRedirectRefresh
	DecisionRedirectDashboard
)

func (d Decision) String() string {
	switch d {
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectRefresh:
		return "redirect_refresh"
	case DecisionRedirectDashboard:
		return "redirect_dashboard"
	default:
		return "allow"
	}
}

// Classification pairs the decision with its redirect target.
type Classification struct {
	Decision Decision
	Location string // redirect target, empty for DecisionAllow
}

// Classifier decides, per request, whether to let the path through or
// redirect. It only decodes token expiry and never checks signatures, so it
// is a routing optimisation, not a security boundary: a forged unexpired
// token passes this gate and is rejected by the identity service on the
// first real API call.
type Classifier struct {
	inspector         *token.Inspector
	protectedPrefixes []string
	publicAuthPaths   []string
	accessCookie      string
	refreshCookie     string
	metrics           *metrics.Metrics
}

// ClassifierOption defines a function type to modify the Classifier instance.
type ClassifierOption func(*Classifier)

func WithClassifierMetrics(m *metrics.Metrics) ClassifierOption {
	return func(c *Classifier) {
		c.metrics = m
	}
}

// NewClassifier creates a Classifier using the configured path sets.
func NewClassifier(inspector *token.Inspector, cfg config.GatewayConfig, options ...ClassifierOption) *Classifier {
	c := &Classifier{
		inspector:         inspector,
		protectedPrefixes: cfg.GetProtectedPrefixes(),
		publicAuthPaths:   cfg.GetPublicAuthPaths(),
		accessCookie:      cfg.GetAccessCookieName(),
		refreshCookie:     cfg.GetRefreshCookieName(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Classify applies the routing rules in order:
//  1. The refresh endpoint itself is always allowed, or the refresh
//     redirect would loop forever.
//  2. A protected path with a missing or expired access token redirects to
//     the refresh flow when a refresh token is present, else to login. The
//     original destination, query string included, rides along as a query
//     parameter.
//  3. A public-auth-only path with any access token present redirects to
//     the dashboard. Expiry is deliberately not checked here.
//  4. Everything else passes through untouched.
//
// target is the request's path with any query string attached; matching
// uses only the path portion.
func (c *Classifier) Classify(target, accessToken, refreshToken string) Classification {
	result := c.classify(target, accessToken, refreshToken)
	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(result.Decision.String()).Inc()
	}
	return result
}

func (c *Classifier) classify(target, accessToken, refreshToken string) Classification {
	path := target
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if hasPathPrefix(path, RouteAPIRefresh) {
		return Classification{Decision: DecisionAllow}
	}

	if matchesAny(path, c.protectedPrefixes) && (accessToken == "" || c.inspector.Expired(accessToken)) {
		if refreshToken != "" {
			location := RouteAPIRefresh + "?" + redirectParam + "=" + url.QueryEscape(target)
			return Classification{Decision: DecisionRedirectRefresh, Location: location}
		}
		location := RouteLogin + "?" + redirectParam + "=" + url.QueryEscape(target)
		return Classification{Decision: DecisionRedirectLogin, Location: location}
	}

	if matchesAny(path, c.publicAuthPaths) && accessToken != "" {
		return Classification{Decision: DecisionRedirectDashboard, Location: RouteDashboard}
	}

	return Classification{Decision: DecisionAllow}
}

// Middleware applies the classifier in front of a handler chain.
func (c *Classifier) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Classify(r.URL.RequestURI(), cookieValue(r, c.accessCookie), cookieValue(r, c.refreshCookie))
		if result.Decision != DecisionAllow {
			http.Redirect(w, r, result.Location, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches on path-segment boundaries, so "/admin" covers
// "/admin/users" but not "/administrator".
func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
