package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/revisa/internal/config"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/resilience"
	"github.com/MrWong99/revisa/pkg/provider/llm"
	"github.com/MrWong99/revisa/pkg/provider/llm/anyllm"
	"github.com/MrWong99/revisa/pkg/provider/llm/openai"
)

// registerBuiltinProviders wires the language model factories that ship with
// revisa into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d, ok := optDuration(entry.Options, "timeout"); ok {
			opts = append(opts, openai.WithTimeout(d))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// Every other vendor goes through any-llm-go. Local servers take the
	// address only, never a key.
	for _, name := range anyllm.Vendors() {
		if name == "openai" {
			continue
		}
		local := anyllm.IsLocal(name)
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" && !local {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(name, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}
}

// buildProvider creates the configured provider and its fallbacks behind a
// circuit breaker each. Breaker transitions are counted in m.
func buildProvider(cfg *config.Config, m *observe.Metrics) (*resilience.LLMFallback, string, error) {
	if cfg.Provider.Name == "" {
		return nil, "", errors.New("no language model configured; set provider.name in the config file")
	}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	primary, err := reg.CreateLLM(cfg.Provider)
	if err != nil {
		return nil, "", err
	}
	fcfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("provider circuit changed state", "provider", name, "from", from.String(), "to", to.String())
				m.RecordBreakerTransition(context.Background(), name, to.String())
			},
		},
	}
	chain := resilience.NewLLMFallback(primary, entryLabel(cfg.Provider), fcfg)
	for i, fb := range cfg.Fallbacks {
		p, err := reg.CreateLLM(fb)
		if err != nil {
			return nil, "", fmt.Errorf("fallbacks[%d]: %w", i, err)
		}
		chain.AddFallback(entryLabel(fb), p)
	}
	slog.Info("provider created", "name", cfg.Provider.Name, "model", cfg.Provider.Model,
		"chain", chain.Names())
	return chain, cfg.Provider.Name, nil
}

func entryLabel(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + "/" + e.Model
}

func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration accepts a Go duration string ("30s") or a number of seconds.
func optDuration(opts map[string]any, key string) (time.Duration, bool) {
	switch v := opts[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		return d, err == nil && d > 0
	case int:
		return time.Duration(v) * time.Second, v > 0
	case float64:
		return time.Duration(v * float64(time.Second)), v > 0
	}
	return 0, false
}
