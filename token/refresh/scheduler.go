package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adultna/go-session-gateway/internal/clock"
	"github.com/adultna/go-session-gateway/internal/metrics"
)

// State of the scheduler. Transitions:
//
//	Idle --Schedule--> Armed --fire--> Refreshing --success--> Armed
//	                                              --failure--> Idle
//	any --Stop--> Idle
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateRefreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// RefreshFunc renews the access token and returns the new expiry instant.
type RefreshFunc func(ctx context.Context) (time.Time, error)

// Scheduler proactively renews the access token a fixed margin before it
// expires. At most one timer is armed at any time: Schedule always cancels
// the previous timer before arming a new one, and each successful refresh
// re-arms exactly once from the returned expiry. A failed refresh stops the
// cycle; the edge classifier catches the session on its next protected
// request.
type Scheduler struct {
	mu          sync.Mutex
	state       State
	timer       clock.Timer
	cancel      context.CancelFunc // cancels an in-flight refresh
	stopped     bool
	lastRefresh time.Time // observability marker, not used for correctness

	refresh RefreshFunc
	clk     clock.Clock
	margin  time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// SchedulerOption defines a function type to modify the Scheduler instance.
type SchedulerOption func(*Scheduler)

// WithClock sets the clock (primarily for testing)
func WithClock(clk clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clk = clk
	}
}

// WithMargin sets how long before expiry the refresh fires.
func WithMargin(margin time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.margin = margin
	}
}

func WithLogger(logger zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

const defaultMargin = 2 * time.Minute

// NewScheduler creates a Scheduler. The refresh function is called with a
// context that is cancelled by Stop.
func NewScheduler(refresh RefreshFunc, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		refresh: refresh,
		clk:     clock.New(),
		margin:  defaultMargin,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Schedule arms a one-shot refresh for expiresAt minus the margin. Any
// previously armed timer is cancelled first. A token already inside the
// margin refreshes immediately (zero delay) rather than being dropped.
func (s *Scheduler) Schedule(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	delay := expiresAt.Sub(s.clk.Now()) - s.margin
	if delay < 0 {
		delay = 0
	}

	s.state = StateArmed
	s.timer = s.clk.AfterFunc(delay, s.fire)
}

// Cancel disarms the timer and aborts any in-flight refresh, returning the
// scheduler to Idle. A later Schedule re-arms it; logout uses Cancel so a
// subsequent login can resume renewal.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarm()
}

// Stop cancels like Cancel and additionally retires the scheduler: further
// Schedule calls are no-ops. Component teardown uses Stop so no dangling
// callback outlives its owner.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.disarm()
}

// disarm must be called with the mutex held.
func (s *Scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastRefresh returns when the last successful refresh completed.
func (s *Scheduler) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.stopped || s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	s.state = StateRefreshing
	s.timer = nil

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	expiresAt, err := s.refresh(ctx)

	s.mu.Lock()
	s.cancel = nil
	// A Cancel or Stop that landed while the refresh was in flight has
	// already moved the state off Refreshing; its disarm wins and the
	// outcome of this refresh must not re-arm the timer.
	if s.stopped || s.state != StateRefreshing {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		s.countRefresh("failure")
		s.logger.Warn().Err(err).Msg("token refresh failed, renewal cycle stopped")
		return
	}
	s.state = StateIdle
	s.lastRefresh = s.clk.Now()
	s.mu.Unlock()

	s.countRefresh("success")
	s.logger.Debug().Time("expires_at", expiresAt).Msg("token refreshed")
	s.Schedule(expiresAt)
}

func (s *Scheduler) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.RefreshTotal.WithLabelValues(outcome).Inc()
	}
}
