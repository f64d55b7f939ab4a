package gateway

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Public-auth-only pages (served by the front end, classified here)
	RouteLogin       = "/auth/login"
	RouteRegister    = "/auth/register"
	RouteVerifyEmail = "/auth/verify-email"

	// Authenticated landing page
	RouteDashboard = "/dashboard"

	// Session API routes
	RouteAPIRefresh = "/api/auth/refresh"
	RouteAPILogout  = "/api/auth/logout"
	RouteAPIMe      = "/api/auth/me"
	RouteAPIEvents  = "/api/auth/events"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// redirectParam carries the original destination through the refresh
	// flow so the visitor lands back where they started.
	redirectParam = "redirect"
)
