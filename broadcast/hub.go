package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adultna/go-session-gateway/internal/metrics"
)

// ChannelName is the well-known identifier browser tabs subscribe under.
const ChannelName = "auth-session"

// EventType tags a session event. There is no payload beyond the tag: a
// LOGIN tells subscribers to re-fetch identity from the source of truth, a
// LOGOUT tells them to drop cached identity.
type EventType string

const (
	EventLogin  EventType = "LOGIN"
	EventLogout EventType = "LOGOUT"
)

// Event is the message published on the channel.
type Event struct {
	Type EventType `json:"type"`
}

// Hub fans session events out to every subscriber. Delivery is FIFO per
// subscriber; a subscriber that stops draining its channel is skipped rather
// than blocking the publisher. A nil *Hub is valid: every operation degrades
// to a no-op, so single-tab behaviour stays correct where broadcasting is
// unavailable.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	closed      bool

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Subscription is one subscriber's handle on the hub. Events arrive on C.
// Close must be called when the owning component goes away or the hub keeps
// a dangling channel; closing twice is a no-op.
type Subscription struct {
	C chan Event

	id  string
	hub *Hub
}

// HubOption defines a function type to modify the Hub instance.
type HubOption func(*Hub)

func WithLogger(logger zerolog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

const subscriberBuffer = 8

// NewHub creates an empty Hub.
func NewHub(options ...HubOption) *Hub {
	h := &Hub{
		subscribers: make(map[string]*Subscription),
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber and returns its handle.
func (h *Hub) Subscribe() *Subscription {
	if h == nil {
		return &Subscription{C: make(chan Event)}
	}

	sub := &Subscription{
		C:   make(chan Event, subscriberBuffer),
		id:  uuid.New().String(),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.C)
		sub.hub = nil
		return sub
	}
	h.subscribers[sub.id] = sub
	return sub
}

// Publish delivers the event to every current subscriber. Fire and forget:
// publishing with no subscribers is a no-op, and a subscriber whose buffer
// is full misses the event rather than stalling the rest.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(string(event.Type)).Inc()
	}

	for id, sub := range h.subscribers {
		select {
		case sub.C <- event:
		default:
			h.logger.Warn().Str("subscriber", id).Str("event", string(event.Type)).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// PublishLogin broadcasts a LOGIN tag.
func (h *Hub) PublishLogin() {
	h.Publish(Event{Type: EventLogin})
}

// PublishLogout broadcasts a LOGOUT tag.
func (h *Hub) PublishLogout() {
	h.Publish(Event{Type: EventLogout})
}

// Subscribers reports how many subscriptions are currently registered.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.C)
		sub.hub = nil
		delete(h.subscribers, id)
	}
}

// Close removes the subscription from the hub and closes its channel.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	h := s.hub

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[s.id]; !ok {
		return
	}
	delete(h.subscribers, s.id)
	close(s.C)
	s.hub = nil
}
