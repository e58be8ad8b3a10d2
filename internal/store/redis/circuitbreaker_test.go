package redis

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, 10*time.Second)
	cb.now = clk.now
	return cb, clk
}

var errFail = errors.New("fail")

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen || called {
		t.Errorf("expected rejection without call, got err=%v called=%v", err, called)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(2)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	clk.advance(11 * time.Second)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed after probe, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clk := newTestBreaker(2)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	clk.advance(11 * time.Second)
	cb.Execute(func() error { return errFail })
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after failed probe, got %v", cb.CurrentState())
	}

	// The reset timeout restarts from the failed probe.
	clk.advance(5 * time.Second)
	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clk := newTestBreaker(1)
	var transitions []State
	cb.OnStateChange = func(from, to State) { transitions = append(transitions, to) }

	cb.Execute(func() error { return errFail })
	clk.advance(11 * time.Second)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}
