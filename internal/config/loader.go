package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the language model provider names known to the
// default registry. Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates it and applies
// defaults. Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	validateProviderName("provider", cfg.Provider.Name)
	seen := map[string]int{}
	if cfg.Provider.Name != "" {
		seen[cfg.Provider.Name+"/"+cfg.Provider.Model] = -1
	}
	for i, fb := range cfg.Fallbacks {
		prefix := fmt.Sprintf("fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName(prefix, fb.Name)
		key := fb.Name + "/" + fb.Model
		if prev, ok := seen[key]; ok {
			other := "provider"
			if prev >= 0 {
				other = fmt.Sprintf("fallbacks[%d]", prev)
			}
			errs = append(errs, fmt.Errorf("%s %q is a duplicate of %s", prefix, key, other))
		}
		seen[key] = i
	}
	if cfg.Provider.Name == "" && len(cfg.Fallbacks) > 0 {
		errs = append(errs, errors.New("fallbacks are configured but provider.name is empty"))
	}

	r := cfg.Review
	if r.MaxChunkChars < 0 {
		errs = append(errs, fmt.Errorf("review.max_chunk_chars %d must not be negative", r.MaxChunkChars))
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		errs = append(errs, fmt.Errorf("review.temperature %.2f is out of range [0, 2]", r.Temperature))
	}
	if r.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("review.max_tokens %d must not be negative", r.MaxTokens))
	}
	if r.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("review.max_retries %d must not be negative", r.MaxRetries))
	}
	if r.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("review.retry_backoff %s must not be negative", r.RetryBackoff))
	}
	if r.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("review.request_timeout %s must not be negative", r.RequestTimeout))
	}

	if cfg.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers %d must not be negative", cfg.Batch.Workers))
	}

	for i, pattern := range cfg.Watch.Include {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("watch.include[%d] %q is not a valid glob", i, pattern))
		}
	}
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce %s must not be negative", cfg.Watch.Debounce))
	}

	o := cfg.Output
	if o.Revised != "" && o.Revised == o.Comparisons {
		errs = append(errs, fmt.Errorf("output.revised and output.comparisons must differ, both are %q", o.Revised))
	}

	if cfg.Provider.Name == "" {
		slog.Warn("provider.name is empty; revise and watch need a language model provider")
	}

	return errors.Join(errs...)
}

// ApplyDefaults fills every unset field with its default value and resolves
// missing API keys from the REVISA_API_KEY environment variable.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}
	env := os.Getenv(APIKeyEnv)
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = env
	}
	for i := range cfg.Fallbacks {
		if cfg.Fallbacks[i].APIKey == "" {
			cfg.Fallbacks[i].APIKey = env
		}
	}

	r := &cfg.Review
	if r.MaxChunkChars == 0 {
		r.MaxChunkChars = DefaultMaxChunkChars
	}
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	if r.RetryBackoff == 0 {
		r.RetryBackoff = DefaultRetryBackoff
	}

	o := &cfg.Output
	if o.Revised == "" {
		o.Revised = DefaultRevisedDir
	}
	if o.Comparisons == "" {
		o.Comparisons = DefaultComparisonsDir
	}
	if o.Reports == "" {
		o.Reports = DefaultReportsDir
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = DefaultWorkers
	}

	w := &cfg.Watch
	if len(w.Include) == 0 {
		w.Include = []string{DefaultInclude}
	}
	if w.Debounce == 0 {
		w.Debounce = DefaultDebounce
	}
	if cfg.Observe.ServiceName == "" {
		cfg.Observe.ServiceName = DefaultServiceName
	}
}

// validateProviderName logs a warning if name is non-empty and not one of
// [ValidProviderNames].
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
