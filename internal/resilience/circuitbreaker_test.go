package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

// fakeClock is advanced by hand so no test sleeps through a reset timeout.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.cfg.MaxFailures != 5 || cb.cfg.ResetTimeout != 30*time.Second || cb.cfg.HalfOpenMax != 3 {
		t.Errorf("defaults: got %+v", cb.cfg)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("initial state: got=%v, want closed", got)
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3})

	for i := range 2 {
		if err := cb.Execute(fail); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: got %v, want the backend error", i, err)
		}
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("after 2 failures: got=%v, want closed", got)
	}
	_ = cb.Execute(fail)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("after 3 failures: got=%v, want open", got)
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err=%v called=%v, want ErrCircuitOpen without a call", err, called)
	}
}

func TestCircuitBreaker_SuccessClearsFailures(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 2})
	for range 5 {
		_ = cb.Execute(fail)
		_ = cb.Execute(succeed)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("alternating calls: got=%v, want closed", got)
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		probes []func() error
		want   State
	}{
		{"enough successes close", []func() error{succeed, succeed}, StateClosed},
		{"one success stays half-open", []func() error{succeed}, StateHalfOpen},
		{"failure reopens", []func() error{succeed, fail}, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute, HalfOpenMax: 2})
			_ = cb.Execute(fail)

			clock.Advance(59 * time.Second)
			if got := cb.State(); got != StateOpen {
				t.Fatalf("before timeout: got=%v, want open", got)
			}
			clock.Advance(time.Second)
			if got := cb.State(); got != StateHalfOpen {
				t.Fatalf("after timeout: got=%v, want half-open", got)
			}

			for _, fn := range tt.probes {
				_ = cb.Execute(fn)
			}
			if got := cb.State(); got != tt.want {
				t.Errorf("got=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_ProbeBudget(t *testing.T) {
	t.Parallel()
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, HalfOpenMax: 1})
	_ = cb.Execute(fail)
	clock.Advance(time.Second)

	// The first probe is still running when the second call arrives.
	err := cb.Execute(func() error {
		if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("second probe: got %v, want ErrCircuitOpen", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("got=%v, want closed", got)
	}
}

func TestCircuitBreaker_CancelledCallsDoNotCount(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})
	cancelled := fmt.Errorf("request aborted: %w", context.Canceled)
	for range 3 {
		if err := cb.Execute(func() error { return cancelled }); !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("got=%v, want closed", got)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(fail)
	cb.Reset()
	if got := cb.State(); got != StateClosed {
		t.Fatalf("got=%v, want closed", got)
	}
	if err := cb.Execute(succeed); err != nil {
		t.Errorf("after reset: %v", err)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	t.Parallel()
	var got []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name:         "openai/gpt-4o",
		MaxFailures:  1,
		ResetTimeout: time.Second,
		HalfOpenMax:  1,
		OnStateChange: func(name string, from, to State) {
			got = append(got, name+": "+from.String()+" -> "+to.String())
		},
	})
	_ = cb.Execute(fail)
	clock.Advance(time.Second)
	_ = cb.Execute(succeed)
	cb.Reset() // already closed, no transition

	want := []string{
		"openai/gpt-4o: closed -> open",
		"openai/gpt-4o: open -> half-open",
		"openai/gpt-4o: half-open -> closed",
	}
	if len(got) != len(want) {
		t.Fatalf("got=%q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: got=%q, want %q", i, got[i], want[i])
		}
	}
	if cb.Name() != "openai/gpt-4o" {
		t.Errorf("Name: got=%q", cb.Name())
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(7): "unknown", State(-1): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d): got=%q, want %q", int(s), got, want)
		}
	}
}
