package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// ErrCircuitOpen is returned by Allow while the circuit is open. It is
// distinct from gateway.ErrRemoteUnavailable so operators can tell "the
// provider is down and we stopped calling it" from "this one call failed".
var ErrCircuitOpen = errors.New("breaker: circuit open")

// State is the circuit state machine value.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker is a per-downstream-target circuit breaker.
//
// State is tracked for the target as a whole, not per action, since provider
// failures (auth, outage) are typically provider-wide. Transitions:
//
//	closed --(threshold consecutive counted failures)--> open
//	open --(cooldown elapsed)--> half_open, exactly one probe permitted
//	half_open --(probe success)--> closed
//	half_open --(probe failure)--> open, cooldown restarts
//
// Only gateway.ErrTimeout and gateway.ErrRemoteUnavailable count toward the
// failure threshold; gateway.ErrRemoteRejected indicates a caller bug, not
// provider degradation.
type Breaker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	target        string
	state         State
	failures      int
	openedAt      time.Time
	probeInFlight bool

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewBreaker constructs a closed breaker for one downstream target. clk may
// be nil, in which case time.Now is used.
func NewBreaker(cfg Config, target string, clk func() time.Time, l *logger.Logger, m *metrics.Metrics) *Breaker {
	if clk == nil {
		clk = time.Now
	}
	return &Breaker{
		cfg:     cfg,
		now:     clk,
		target:  target,
		state:   Closed,
		logger:  l,
		metrics: m,
	}
}

// Allow reports whether a call may proceed. While open it fails fast with
// ErrCircuitOpen and no network attempt; after the cooldown it admits
// exactly one probe and moves to half_open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.transition(HalfOpen)
		b.probeInFlight = true
		return nil
	case HalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess reports a successful call. In half_open it closes the
// circuit; in closed it clears the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probeInFlight = false
	if b.state != Closed {
		b.transition(Closed)
	}
}

// RecordFailure reports a failed call. Errors that do not indicate provider
// degradation never count toward the threshold, but a half_open probe that
// completes with one still proves the provider answered, so it closes the
// circuit like a success would. Otherwise the probe slot would stay occupied
// and no call would ever be admitted again.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !countable(err) {
		if b.state == HalfOpen {
			b.probeInFlight = false
			b.transition(Closed)
		}
		return
	}

	b.probeInFlight = false

	switch b.state {
	case HalfOpen:
		// The probe failed; back to open with a fresh cooldown.
		b.openedAt = b.now()
		b.transition(Open)
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(Open)
		}
	}
}

// CurrentState returns the state for observability endpoints.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition switches state and records the change. Callers hold b.mu.
func (b *Breaker) transition(next State) {
	prev := b.state
	b.state = next
	if next == Closed {
		b.failures = 0
	}

	if b.metrics != nil {
		b.metrics.BreakerState.WithLabelValues(b.target).Set(float64(next))
	}
	b.logger.Info("circuit state changed", nil, map[string]interface{}{
		"target": b.target,
		"from":   prev.String(),
		"to":     next.String(),
	})
}

// countable reports whether the error indicates provider degradation.
func countable(err error) bool {
	return errors.Is(err, gateway.ErrTimeout) || errors.Is(err, gateway.ErrRemoteUnavailable)
}
