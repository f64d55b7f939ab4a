package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adultna/go-session-gateway/identity"
)

// TokenSource supplies the current access token for credentialed calls.
// An empty string means no credential is available.
type TokenSource func() string

// Provider holds the cached session state — who is logged in, and whether a
// fetch is outstanding — and is the single source of truth for identity on
// this instance. State is mutated only by RefreshUser and Clear; both are
// idempotent, so concurrent broadcast handlers are safe.
type Provider struct {
	mu      sync.RWMutex
	user    *identity.User
	loading bool
	started bool

	identitySvc identity.Service
	tokens      TokenSource
	logger      zerolog.Logger
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider. No fetch happens until Start.
func NewProvider(identitySvc identity.Service, tokens TokenSource, options ...ProviderOption) *Provider {
	p := &Provider{
		identitySvc: identitySvc,
		tokens:      tokens,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Start performs the single initial identity fetch. Calling it again is a
// no-op.
func (p *Provider) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.RefreshUser(ctx)
}

// RefreshUser re-fetches identity from the identity service. Every failure
// mode — network error, non-OK status, malformed payload — resets identity
// to absent rather than keeping a stale value or propagating an error to
// the rendering path.
func (p *Provider) RefreshUser(ctx context.Context) {
	p.setLoading(true)
	defer p.setLoading(false)

	user, err := p.identitySvc.Me(ctx, p.tokens())
	if err != nil {
		p.logger.Debug().Err(err).Msg("identity fetch failed, clearing session state")
		p.setUser(nil)
		return
	}
	p.setUser(user)
}

// Clear drops the cached identity. Clearing an already-cleared provider is
// a no-op.
func (p *Provider) Clear() {
	p.setUser(nil)
}

// User returns the cached identity, or nil when not authenticated.
func (p *Provider) User() *identity.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

// IsAuthenticated reports whether an identity is cached.
func (p *Provider) IsAuthenticated() bool {
	return p.User() != nil
}

// Loading reports whether an identity fetch is outstanding.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) setUser(user *identity.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = user
}

func (p *Provider) setLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = loading
}
