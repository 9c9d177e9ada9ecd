package resilience

import (
	"context"
	"fmt"

	"github.com/MrWong99/revisa/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that answers each batch from the first
// configured model whose breaker admits the call.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback returns a chain with primary as the preferred model.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback appends a model that is asked after all earlier ones.
func (f *LLMFallback) AddFallback(name string, p llm.Provider) {
	f.group.AddFallback(name, p)
}

// Names returns the model labels in failover order.
func (f *LLMFallback) Names() []string { return f.group.Names() }

// States returns the breaker state of every model in failover order.
func (f *LLMFallback) States() []MemberState { return f.group.States() }

// Ready fails while every model's breaker is open, which means no batch
// could be reviewed right now. It never calls a model.
func (f *LLMFallback) Ready(context.Context) error {
	if f.group.Available() {
		return nil
	}
	return fmt.Errorf("%w for every provider %v", ErrCircuitOpen, f.Names())
}

// Complete implements llm.Provider.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens uses the primary's estimate. Counting is local and never
// touches a breaker.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	return f.primary().CountTokens(messages)
}

// Capabilities returns those of the primary. A fallback may lack JSON mode,
// so answers must be parsed defensively either way.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	return f.primary().Capabilities()
}

func (f *LLMFallback) primary() llm.Provider { return f.group.members[0].value }
