package gateway

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/adultna/go-session-gateway/broadcast"
	"github.com/adultna/go-session-gateway/identity"
	"github.com/adultna/go-session-gateway/internal/config"
	"github.com/adultna/go-session-gateway/internal/metrics"
	"github.com/adultna/go-session-gateway/session"
	"github.com/adultna/go-session-gateway/token"
	"github.com/adultna/go-session-gateway/token/refresh"
)

// Server is the session gateway: it classifies every page-bound request at
// the edge, hosts the session API, keeps the resident session's token
// renewed, and fans logout/login events out to every connected tab.
type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	logger zerolog.Logger

	identity    identity.Service
	inspector   *token.Inspector
	classifier  *Classifier
	credentials *CredentialStore
	provider    *session.Provider
	scheduler   *refresh.Scheduler
	hub         *broadcast.Hub
	sync        *session.Sync
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	upstream    *httputil.ReverseProxy
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// New wires the gateway together. The identity service is the only hard
// dependency; everything else is owned by the server and torn down by
// Shutdown.
func New(cfg config.Config, identitySvc identity.Service, options ...ServerOption) (*Server, error) {
	if identitySvc == nil {
		return nil, errors.New("[gateway.New] identity service is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		identity: identitySvc,
		logger:   zerolog.Nop(),
	}
	s.env = cfg.GetEnv()
	for _, opt := range options {
		opt(s)
	}

	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.New(s.registry)

	s.inspector = token.NewInspector()
	s.classifier = NewClassifier(s.inspector, cfg, WithClassifierMetrics(s.metrics))
	s.credentials = NewCredentialStore()
	s.hub = broadcast.NewHub(broadcast.WithLogger(s.logger), broadcast.WithMetrics(s.metrics))

	s.scheduler = refresh.NewScheduler(s.renewCredentials,
		refresh.WithMargin(cfg.GetRefreshMargin()),
		refresh.WithLogger(s.logger),
		refresh.WithMetrics(s.metrics),
	)

	s.provider = session.NewProvider(identitySvc, s.credentials.AccessToken, session.WithLogger(s.logger))
	s.sync = session.NewSync(s.provider, s.hub,
		session.WithSyncLogger(s.logger),
		session.WithOnLogout(func() {
			s.scheduler.Cancel()
			s.credentials.Clear()
		}),
	)

	if upstreamURL := cfg.GetUpstreamURL(); upstreamURL != "" {
		target, err := url.Parse(upstreamURL)
		if err != nil {
			return nil, errors.Wrap(err, "[gateway.New] invalid upstream URL")
		}
		s.upstream = httputil.NewSingleHostReverseProxy(target)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// Start attaches the cross-tab sync listener and performs the single
// initial identity fetch.
func (s *Server) Start(ctx context.Context) {
	s.sync.Start(ctx)
	s.provider.Start(ctx)
}

// Shutdown tears the coordination pieces down: the armed refresh timer, the
// sync subscription, and every connected event client.
func (s *Server) Shutdown() {
	s.scheduler.Stop()
	s.sync.Stop()
	s.hub.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Provider exposes the session state cache, e.g. for server-rendered views.
func (s *Server) Provider() *session.Provider {
	return s.provider
}

// Hub exposes the broadcast hub.
func (s *Server) Hub() *broadcast.Hub {
	return s.hub
}

// renewCredentials is the scheduler's refresh function: it rotates the
// resident session's credential pair and reports the new access expiry so
// the scheduler can re-arm.
func (s *Server) renewCredentials(ctx context.Context) (time.Time, error) {
	refreshToken := s.credentials.RefreshToken()
	if refreshToken == "" {
		return time.Time{}, errors.New("[Server.renewCredentials] no refresh token held")
	}

	result, err := s.identity.Refresh(ctx, refreshToken)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "[Server.renewCredentials] identity.Refresh")
	}

	s.credentials.Set(result.AccessToken, result.RefreshToken)
	return result.AccessTokenExpiresAt, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.logger.Debug().Str("route", route).Msg("registered")
	}
}
