package budget

import (
	"errors"
	"testing"
	"time"

	"github.com/docsense/aicore/pkg/logger"
)

// fakeClock is a settable clock for deterministic window tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestTracker(cfg Config, clk *fakeClock) *Tracker {
	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "budget-test"})
	return NewTracker(cfg, clk.Now, l, nil)
}

func TestAdmit_RateCeiling(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 3, MonthlyCostUSD: 50}, clk)

	for i := 0; i < 3; i++ {
		if err := tr.Admit("generate_text_embedding"); err != nil {
			t.Fatalf("call %d unexpectedly denied: %v", i+1, err)
		}
	}

	// The (N+1)-th call within the same window must be denied.
	err := tr.Admit("generate_text_embedding")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAdmit_WindowRollover(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 25, 10, 0, 30, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 1, MonthlyCostUSD: 50}, clk)

	if err := tr.Admit("a"); err != nil {
		t.Fatalf("first call denied: %v", err)
	}
	if err := tr.Admit("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Cross the minute boundary; admission succeeds again.
	clk.Advance(30 * time.Second)
	if err := tr.Admit("a"); err != nil {
		t.Fatalf("call after rollover denied: %v", err)
	}
}

func TestAdmit_BudgetExhaustedOverridesRateHeadroom(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 100, MonthlyCostUSD: 1.0}, clk)

	if err := tr.Admit("semantic_analysis"); err != nil {
		t.Fatalf("unexpected denial: %v", err)
	}
	tr.RecordCost("semantic_analysis", 1.0)

	err := tr.Admit("semantic_analysis")
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
}

func TestAdmit_MonthRolloverResetsCost(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 100, MonthlyCostUSD: 1.0}, clk)

	tr.RecordCost("semantic_analysis", 2.0)
	if err := tr.Admit("semantic_analysis"); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}

	// First of the next month, UTC.
	clk.Advance(2 * time.Minute)
	if err := tr.Admit("semantic_analysis"); err != nil {
		t.Fatalf("expected admission after month rollover, got %v", err)
	}

	st := tr.Snapshot()
	if st.MonthCost != 0 {
		t.Errorf("expected month cost reset to 0, got %f", st.MonthCost)
	}
}

func TestRecordCost_IgnoresNonPositive(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 10, MonthlyCostUSD: 50}, clk)

	tr.RecordCost("a", 0)
	tr.RecordCost("a", -3)

	if st := tr.Snapshot(); st.MonthCost != 0 {
		t.Errorf("expected zero cost, got %f", st.MonthCost)
	}
}

func TestSnapshot_ReflectsCounters(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)}
	tr := newTestTracker(Config{RequestsPerMinute: 10, MonthlyCostUSD: 50}, clk)

	_ = tr.Admit("a")
	_ = tr.Admit("a")
	tr.RecordCost("a", 0.5)

	st := tr.Snapshot()
	if st.WindowCount != 2 {
		t.Errorf("expected window count 2, got %d", st.WindowCount)
	}
	if st.MonthCost != 0.5 {
		t.Errorf("expected month cost 0.5, got %f", st.MonthCost)
	}
}
