package breaker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestBreaker(cfg Config, clk *fakeClock) *Breaker {
	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "breaker-test"})
	return NewBreaker(cfg, "test-provider", clk.Now, l, nil)
}

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.RecordFailure(gateway.ErrRemoteUnavailable)
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 3, Cooldown: 30 * time.Second}, clk)

	failN(b, 2)
	if b.CurrentState() != Closed {
		t.Fatal("breaker opened before threshold")
	}

	failN(b, 1)
	if b.CurrentState() != Open {
		t.Fatal("breaker did not open at threshold")
	}

	// Calls now fail fast, no network attempt.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestRejectionsDoNotCount(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 2, Cooldown: time.Second}, clk)

	for i := 0; i < 10; i++ {
		b.RecordFailure(fmt.Errorf("%w: bad input", gateway.ErrRemoteRejected))
	}
	if b.CurrentState() != Closed {
		t.Fatal("rejections must not open the circuit")
	}
}

func TestSuccessResetsConsecutiveCount(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 3, Cooldown: time.Second}, clk)

	failN(b, 2)
	b.RecordSuccess()
	failN(b, 2)

	if b.CurrentState() != Closed {
		t.Fatal("non-consecutive failures must not open the circuit")
	}
}

func TestHalfOpenSingleProbe(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 30 * time.Second}, clk)

	failN(b, 1)
	if b.CurrentState() != Open {
		t.Fatal("expected open")
	}

	// Still cooling down.
	clk.Advance(10 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen during cooldown, got %v", err)
	}

	// Cooldown elapsed: exactly one probe passes.
	clk.Advance(25 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe admission, got %v", err)
	}
	if b.CurrentState() != HalfOpen {
		t.Fatal("expected half_open after probe admission")
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second concurrent probe to be denied, got %v", err)
	}
}

func TestProbeSuccessCloses(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 1, Cooldown: time.Second}, clk)

	failN(b, 1)
	clk.Advance(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe denied: %v", err)
	}

	b.RecordSuccess()
	if b.CurrentState() != Closed {
		t.Fatal("expected closed after probe success")
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected admission after close, got %v", err)
	}
}

func TestProbeFailureReopensAndRestartsCooldown(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 10 * time.Second}, clk)

	failN(b, 1)
	clk.Advance(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe denied: %v", err)
	}

	b.RecordFailure(gateway.ErrTimeout)
	if b.CurrentState() != Open {
		t.Fatal("expected open after probe failure")
	}

	// The cooldown restarted at the probe failure, not at the original open.
	clk.Advance(5 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen within restarted cooldown, got %v", err)
	}

	clk.Advance(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe after restarted cooldown, got %v", err)
	}
}

func TestProbeRejectionClosesInsteadOfWedging(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 10 * time.Second}, clk)

	failN(b, 1)
	clk.Advance(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe denied: %v", err)
	}

	// The provider answered, even if it rejected the request: the probe
	// outcome must settle the state rather than leave the slot occupied.
	b.RecordFailure(fmt.Errorf("%w: bad input", gateway.ErrRemoteRejected))
	if b.CurrentState() != Closed {
		t.Fatal("expected closed after rejected probe")
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("expected admission after rejected probe, got %v", err)
	}
	clk.Advance(24 * time.Hour)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected admission to keep working, got %v", err)
	}
}

func TestTimeoutCountsTowardThreshold(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(Config{FailureThreshold: 2, Cooldown: time.Second}, clk)

	b.RecordFailure(gateway.ErrTimeout)
	b.RecordFailure(fmt.Errorf("%w: dial tcp: connection refused", gateway.ErrRemoteUnavailable))

	if b.CurrentState() != Open {
		t.Fatal("expected timeouts and unavailability to open the circuit")
	}
}
