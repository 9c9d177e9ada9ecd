// Package config provides the configuration schema, loader, provider registry
// and file watcher for revisa.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// APIKeyEnv is consulted for provider entries that carry no api_key.
const APIKeyEnv = "REVISA_API_KEY"

// Default values applied by [ApplyDefaults].
const (
	DefaultMaxChunkChars = 10000
	DefaultTemperature   = 0.1
	DefaultMaxTokens     = 10000
	DefaultMaxRetries    = 3
	DefaultRetryBackoff  = time.Second
	DefaultWorkers       = 2
	DefaultDebounce      = 2 * time.Second
	DefaultInclude       = "**/*.docx"
	DefaultServiceName   = "revisa"

	DefaultRevisedDir     = "output/revised"
	DefaultComparisonsDir = "output/comparisons"
	DefaultReportsDir     = "output/reports"
	DefaultHistoryPath    = "output/history.jsonl"
)

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader] and treated as read-only
// afterwards; reloads produce a new value.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Provider ProviderEntry  `yaml:"provider"`
	Review   ReviewConfig   `yaml:"review"`
	Revision RevisionConfig `yaml:"revision"`
	Output   OutputConfig   `yaml:"output"`
	History  HistoryConfig  `yaml:"history"`
	Batch    BatchConfig    `yaml:"batch"`
	Watch    WatchConfig    `yaml:"watch"`
	Observe  ObserveConfig  `yaml:"observe"`

	// Fallbacks are tried in order when the primary provider fails or its
	// circuit is open.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// ProviderEntry is the configuration for a single language model provider.
type ProviderEntry struct {
	// Name selects the registered factory (e.g., "openai", "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider. When empty, the
	// REVISA_API_KEY environment variable is used.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest").
	Model string `yaml:"model"`

	// Options holds provider-specific settings not covered by the common fields.
	Options map[string]any `yaml:"options"`
}

// ReviewConfig tunes the model review of each batch.
type ReviewConfig struct {
	// MaxChunkChars is the character budget of one batch.
	MaxChunkChars int `yaml:"max_chunk_chars"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// MaxRetries is the total number of attempts per batch.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the wait after the first failed attempt. It doubles
	// after every further failure.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// RequestTimeout bounds each model call. Zero means no bound.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ProtectMarkup hides URLs, bracketed markup and e-mail addresses from
	// the model. Nil means on.
	ProtectMarkup *bool `yaml:"protect_markup"`
}

// Protect reports whether markup protection is enabled.
func (r ReviewConfig) Protect() bool {
	return r.ProtectMarkup == nil || *r.ProtectMarkup
}

// RevisionConfig controls how suggestions are applied.
type RevisionConfig struct {
	// Guard rejects patches that alter markup or URLs or change the unit
	// length by more than 30%.
	Guard bool `yaml:"guard"`
}

// OutputConfig names the output directories.
type OutputConfig struct {
	Revised     string `yaml:"revised"`
	Comparisons string `yaml:"comparisons"`
	Reports     string `yaml:"reports"`
}

// HistoryConfig selects where run records are stored.
type HistoryConfig struct {
	// Path is the JSONL history file. "-" disables the file store.
	Path string `yaml:"path"`

	// PostgresDSN enables the PostgreSQL store when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BatchConfig limits document-level concurrency.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// WatchConfig configures the inbox folder watcher.
type WatchConfig struct {
	// Include are doublestar globs relative to the watched folder.
	Include []string `yaml:"include"`

	// ExcludeDirs are directory names that are never descended into.
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Debounce is how long a file must stay quiet before it is processed.
	Debounce time.Duration `yaml:"debounce"`

	// Compare also builds the mirrored comparison of every revised file.
	Compare bool `yaml:"compare"`
}

// ObserveConfig configures the ops endpoint and telemetry.
type ObserveConfig struct {
	// ListenAddr serves /healthz, /readyz and /metrics. Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	ServiceName string `yaml:"service_name"`
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
