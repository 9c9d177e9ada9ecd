package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func newTestGroup(names ...string) *FallbackGroup[string] {
	cfg := FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2}}
	fg := NewFallbackGroup(names[0], names[0], cfg)
	for _, n := range names[1:] {
		fg.AddFallback(n, n)
	}
	return fg
}

// failing returns fn that fails for the named members and records the order
// in which members were called.
func failing(calls *[]string, down ...string) func(string) (string, error) {
	return func(v string) (string, error) {
		*calls = append(*calls, v)
		if slices.Contains(down, v) {
			return "", errBackend
		}
		return "answer from " + v, nil
	}
}

func TestExecuteWithResult(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		down      []string
		want      string
		wantCalls []string
	}{
		{"primary answers", nil, "answer from openai", []string{"openai"}},
		{"first fallback answers", []string{"openai"}, "answer from anthropic", []string{"openai", "anthropic"}},
		{"last fallback answers", []string{"openai", "anthropic"}, "answer from ollama", []string{"openai", "anthropic", "ollama"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls []string
			got, err := ExecuteWithResult(newTestGroup("openai", "anthropic", "ollama"), failing(&calls, tt.down...))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got=%q, want %q", got, tt.want)
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("calls: got=%q, want %q", calls, tt.wantCalls)
			}
		})
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	t.Parallel()
	var calls []string
	_, err := ExecuteWithResult(newTestGroup("openai", "ollama"), failing(&calls, "openai", "ollama"))
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, errBackend) {
		t.Fatalf("got %v, want ErrAllFailed wrapping the backend error", err)
	}
	if len(calls) != 2 {
		t.Errorf("calls: got=%q, want both members", calls)
	}
}

func TestExecuteWithResult_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	fg := newTestGroup("openai", "ollama")
	var calls []string
	fn := failing(&calls, "openai")

	// MaxFailures is 2: two failed batches open the primary's breaker.
	for range 2 {
		if _, err := ExecuteWithResult(fg, fn); err != nil {
			t.Fatal(err)
		}
	}
	calls = nil
	if _, err := ExecuteWithResult(fg, fn); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(calls, []string{"ollama"}) {
		t.Errorf("calls: got=%q, want only the fallback", calls)
	}

	states := fg.States()
	want := []MemberState{{"openai", StateOpen}, {"ollama", StateClosed}}
	if !slices.Equal(states, want) {
		t.Errorf("States: got=%v, want %v", states, want)
	}
	if !fg.Available() {
		t.Error("group with a closed member must be available")
	}
}

func TestExecuteWithResult_CancelStopsChain(t *testing.T) {
	t.Parallel()
	var calls []string
	_, err := ExecuteWithResult(newTestGroup("openai", "ollama"), func(v string) (string, error) {
		calls = append(calls, v)
		return "", context.Canceled
	})
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrAllFailed) {
		t.Fatalf("got %v, want bare context.Canceled", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls: got=%q, want the primary only", calls)
	}
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()
	fg := newTestGroup("openai", "ollama")
	var served string
	err := fg.Execute(func(v string) error {
		if v == "openai" {
			return errBackend
		}
		served = v
		return nil
	})
	if err != nil || served != "ollama" {
		t.Errorf("err=%v served=%q, want the fallback to serve", err, served)
	}
	if got := fg.Names(); !slices.Equal(got, []string{"openai", "ollama"}) {
		t.Errorf("Names: got=%q", got)
	}
}

func TestFallbackGroup_Unavailable(t *testing.T) {
	t.Parallel()
	fg := newTestGroup("openai")
	for range 2 {
		_ = fg.Execute(func(string) error { return errBackend })
	}
	if fg.Available() {
		t.Error("group whose only breaker is open must be unavailable")
	}
}
