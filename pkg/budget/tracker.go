package budget

import (
	"errors"
	"sync"
	"time"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// Denial reasons. Callers distinguish them with errors.Is; both mean "retry
// later", never "drop silently".
var (
	ErrRateLimited     = errors.New("budget: per-minute request ceiling reached")
	ErrBudgetExhausted = errors.New("budget: monthly cost ceiling reached")
)

// Tracker gates outgoing gateway calls behind a per-minute request counter
// and a monthly cost ceiling.
//
// Windows are fixed, not sliding: the request counter resets on every minute
// boundary and the cost counter on the first of each month, both in UTC.
// Fixed windows make rollover deterministic and therefore testable with an
// injected clock.
//
// All counters are in-memory; a process restart resets them. The monthly
// ceiling is advisory rather than billing-critical, so durable accounting is
// deliberately out of scope.
type Tracker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	windowStart time.Time
	windowCount int

	monthStart time.Time
	monthCost  float64

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// State is a point-in-time snapshot of the tracker's counters.
type State struct {
	WindowStart time.Time
	WindowCount int
	MonthStart  time.Time
	MonthCost   float64
}

// NewTracker constructs a Tracker with zeroed counters. clk may be nil, in
// which case time.Now is used; tests inject a deterministic clock.
func NewTracker(cfg Config, clk func() time.Time, l *logger.Logger, m *metrics.Metrics) *Tracker {
	if clk == nil {
		clk = time.Now
	}
	now := clk().UTC()
	return &Tracker{
		cfg:         cfg,
		now:         clk,
		windowStart: now.Truncate(time.Minute),
		monthStart:  monthOf(now),
		logger:      l,
		metrics:     m,
	}
}

// Admit decides whether one more gateway call may go out. It must be called
// strictly before invoking the gateway client.
//
// The budget check runs first: an exhausted monthly ceiling denies even when
// the minute window has headroom.
func (t *Tracker) Admit(action string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(t.now().UTC())

	if t.monthCost >= t.cfg.MonthlyCostUSD {
		t.deny(action, "budget_exhausted")
		return ErrBudgetExhausted
	}

	if t.windowCount >= t.cfg.RequestsPerMinute {
		t.deny(action, "rate_limited")
		return ErrRateLimited
	}

	t.windowCount++
	return nil
}

// RecordCost accrues the actual cost of a completed call. It must only be
// called after a successful response, so failed calls are never charged.
func (t *Tracker) RecordCost(action string, costUSD float64) {
	if costUSD <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(t.now().UTC())
	t.monthCost += costUSD

	if t.metrics != nil {
		t.metrics.BudgetMonthlyCost.Set(t.monthCost)
	}
}

// Snapshot returns the current counters for observability endpoints.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(t.now().UTC())
	return State{
		WindowStart: t.windowStart,
		WindowCount: t.windowCount,
		MonthStart:  t.monthStart,
		MonthCost:   t.monthCost,
	}
}

// rollover resets counters whose window has elapsed. Callers hold t.mu.
func (t *Tracker) rollover(now time.Time) {
	if win := now.Truncate(time.Minute); win.After(t.windowStart) {
		t.windowStart = win
		t.windowCount = 0
	}
	if m := monthOf(now); m.After(t.monthStart) {
		t.logger.Info("monthly budget window rolled over", nil, map[string]interface{}{
			"previous_cost_usd": t.monthCost,
		})
		t.monthStart = m
		t.monthCost = 0
		if t.metrics != nil {
			t.metrics.BudgetMonthlyCost.Set(0)
		}
	}
}

func (t *Tracker) deny(action, reason string) {
	if t.metrics != nil {
		t.metrics.BudgetDenials.WithLabelValues(reason).Inc()
	}
	t.logger.Warn("gateway call denied", nil, map[string]interface{}{
		"action": action,
		"reason": reason,
	})
}

// monthOf returns the first instant of now's calendar month in UTC.
func monthOf(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
