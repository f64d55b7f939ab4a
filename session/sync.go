package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adultna/go-session-gateway/broadcast"
)

// Sync subscribes a Provider to the broadcast hub for its lifetime and keeps
// the cached identity consistent with session events published anywhere:
// LOGOUT drops the cached identity, LOGIN re-fetches it from the identity
// service rather than assuming a value.
type Sync struct {
	provider *Provider
	hub      *broadcast.Hub
	logger   zerolog.Logger
	onLogout func()

	mu   sync.Mutex
	sub  *broadcast.Subscription
	done chan struct{}
}

// SyncOption defines a function type to modify the Sync instance.
type SyncOption func(*Sync)

func WithSyncLogger(logger zerolog.Logger) SyncOption {
	return func(s *Sync) {
		s.logger = logger
	}
}

// WithOnLogout installs a hook run after a LOGOUT event clears the cached
// identity. The gateway uses it to stop the refresh scheduler, the way a
// browser tab off a public route forces navigation back to the login page.
func WithOnLogout(onLogout func()) SyncOption {
	return func(s *Sync) {
		s.onLogout = onLogout
	}
}

// NewSync creates a Sync between the provider and the hub.
func NewSync(provider *Provider, hub *broadcast.Hub, options ...SyncOption) *Sync {
	s := &Sync{
		provider: provider,
		hub:      hub,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start opens the subscription and consumes events until Stop is called or
// the context is cancelled.
func (s *Sync) Start(ctx context.Context) {
	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return
	}
	s.sub = s.hub.Subscribe()
	s.done = make(chan struct{})
	sub, done := s.sub, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer sub.Close()
		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				s.handle(ctx, event)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop closes the subscription and waits for the consumer to drain.
func (s *Sync) Stop() {
	s.mu.Lock()
	sub, done := s.sub, s.done
	s.sub = nil
	s.done = nil
	s.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

func (s *Sync) handle(ctx context.Context, event broadcast.Event) {
	switch event.Type {
	case broadcast.EventLogout:
		s.provider.Clear()
		if s.onLogout != nil {
			s.onLogout()
		}
	case broadcast.EventLogin:
		s.provider.RefreshUser(ctx)
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("unknown session event ignored")
	}
}
