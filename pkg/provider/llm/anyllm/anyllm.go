// Package anyllm reviews text through any vendor reachable via
// github.com/mozilla-ai/any-llm-go.
//
// The vendor set is fixed at compile time; [Vendors] lists it. Hosted vendors
// read their key from the usual environment variable when none is passed,
// local servers ([IsLocal]) take only a base URL.
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/revisa/pkg/provider/llm"
)

type vendor struct {
	open  func(...anyllmlib.Option) (anyllmlib.Provider, error)
	local bool
}

// adapt drops the concrete return type of a vendor constructor.
func adapt[P anyllmlib.Provider](fn func(...anyllmlib.Option) (P, error)) func(...anyllmlib.Option) (anyllmlib.Provider, error) {
	return func(opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
		p, err := fn(opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

var vendors = map[string]vendor{
	"openai":    {open: adapt(anyllmoai.New)},
	"anthropic": {open: adapt(anthropic.New)},
	"gemini":    {open: adapt(gemini.New)},
	"deepseek":  {open: adapt(deepseek.New)},
	"mistral":   {open: adapt(mistral.New)},
	"groq":      {open: adapt(groq.New)},
	"ollama":    {open: adapt(ollama.New), local: true},
	"llamacpp":  {open: adapt(llamacpp.New), local: true},
	"llamafile": {open: adapt(llamafile.New), local: true},
}

// ErrUnknownVendor is returned by [New] for a name missing from [Vendors].
var ErrUnknownVendor = errors.New("anyllm: unknown vendor")

// Vendors returns the supported vendor names in sorted order.
func Vendors() []string {
	names := make([]string, 0, len(vendors))
	for name := range vendors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsLocal reports whether vendor is a self-hosted server that needs no key.
func IsLocal(name string) bool {
	return vendors[strings.ToLower(name)].local
}

// Provider implements llm.Provider on top of one any-llm-go backend.
type Provider struct {
	backend anyllmlib.Provider
	vendor  string
	model   string
}

// New opens the backend of vendor for model. opts are any-llm-go options such
// as anyllmlib.WithAPIKey and anyllmlib.WithBaseURL.
func New(name, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if name == "" {
		return nil, errors.New("anyllm: vendor must not be empty")
	}
	if model == "" {
		return nil, errors.New("anyllm: model must not be empty")
	}
	name = strings.ToLower(name)
	v, ok := vendors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownVendor, name, strings.Join(Vendors(), ", "))
	}
	backend, err := v.open(opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: open %s: %w", name, err)
	}
	return &Provider{backend: backend, vendor: name, model: model}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.backend.Completion(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s completion: %w", p.vendor, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: %s returned no choices", p.vendor)
	}

	choice := resp.Choices[0]
	out := &llm.CompletionResponse{
		Content:      choice.Message.ContentString(),
		FinishReason: string(choice.FinishReason),
	}
	if u := resp.Usage; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

// CountTokens implements llm.Provider.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	return llm.EstimateTokens(messages), nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.model)
}

func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	// any-llm-go has no response format switch that every vendor honours.
	system := req.SystemPrompt
	if req.JSONObject {
		system = llm.WithJSONInstruction(system)
	}

	msgs := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	if system != "" {
		msgs = append(msgs, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: system})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	params := anyllmlib.CompletionParams{Model: p.model, Messages: msgs}
	if req.Temperature != 0 {
		params.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = &req.MaxTokens
	}
	return params
}

var families = []llm.Family{
	{Prefix: "gpt-4o", Caps: llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 16_384, SupportsJSONMode: true}},
	{Prefix: "gpt-4-turbo", Caps: llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096, SupportsJSONMode: true}},
	{Prefix: "gpt-4", Caps: llm.ModelCapabilities{ContextWindow: 8_192, MaxOutputTokens: 4_096}},
	{Prefix: "gpt-3.5-turbo", Caps: llm.ModelCapabilities{ContextWindow: 16_385, MaxOutputTokens: 4_096, SupportsJSONMode: true}},
	{Prefix: "o1-mini", Caps: llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 65_536}},
	{Prefix: "o1", Caps: llm.ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 100_000, SupportsJSONMode: true}},
	{Prefix: "o3", Caps: llm.ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 100_000, SupportsJSONMode: true}},
	{Prefix: "claude", Anywhere: true, Caps: llm.ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 8_192}},
	{Prefix: "gemini-1.5-pro", Anywhere: true, Caps: llm.ModelCapabilities{ContextWindow: 2_097_152, MaxOutputTokens: 8_192, SupportsJSONMode: true}},
	{Prefix: "gemini", Anywhere: true, Caps: llm.ModelCapabilities{ContextWindow: 1_048_576, MaxOutputTokens: 8_192, SupportsJSONMode: true}},
	{Prefix: "deepseek", Anywhere: true, Caps: llm.ModelCapabilities{ContextWindow: 64_000, MaxOutputTokens: 8_192, SupportsJSONMode: true}},
}

// modelCapabilities gives unknown models a 128k window and 4k answers, which
// fits most open weights served locally.
func modelCapabilities(model string) llm.ModelCapabilities {
	return llm.Lookup(families, model, llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096})
}

var _ llm.Provider = (*Provider)(nil)
