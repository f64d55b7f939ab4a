package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Session API
	s.RegisterRouteFunc("POST "+RouteAPIRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPIRefresh, ChainMiddleware(s.RefreshRedirectHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPILogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))

	// Cross-tab event channel (websocket; CORS is a no-op on upgrades)
	s.RegisterRouteFunc("GET "+RouteAPIEvents, ChainMiddleware(s.EventsHandler(), s.LoggingMiddleware, s.RecoverMiddleware))

	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Everything else passes the edge classifier before reaching the app
	s.RegisterRouteFunc("/", ChainMiddleware(s.PassthroughHandler(), s.EdgeMiddleware()...))
}

// PassthroughHandler forwards classified-as-allowed requests to the
// upstream application, or answers 404 when no upstream is configured.
func (s *Server) PassthroughHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.upstream == nil {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		s.upstream.ServeHTTP(w, r)
	}
}
