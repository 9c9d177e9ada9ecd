// Package pipeline runs documents end to end.
//
// [Pipeline.Revise] is the processor: it enumerates the units of a document,
// sends them batch by batch to the language model, applies the suggestions,
// reconciles silent changes and writes the revised document and its JSON
// report. [Pipeline.Compare] is the comparer: it renders every difference
// between an original and a revised document as inline markup and prepends
// the report block. Each run is sequential and owns its document trees;
// [Pipeline.ReviseAll] and [Watch] run several documents at once.
package pipeline

import (
	"context"
	"time"

	"github.com/MrWong99/revisa/internal/chunk"
	"github.com/MrWong99/revisa/internal/config"
	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/review/llmreview"
	"github.com/MrWong99/revisa/internal/revision"
	"github.com/MrWong99/revisa/pkg/provider/llm"
)

// Reviewer returns the suggestions of the language model for one batch.
// [llmreview.Reviewer] is the production implementation.
type Reviewer interface {
	Review(ctx context.Context, batch chunk.Batch) (llmreview.Result, error)
}

// Progress describes the batch about to be reviewed.
type Progress struct {
	Batch   int // 1-based
	Batches int

	// First and Last are the sequence numbers of the batch's units.
	First, Last int

	// FirstPage and LastPage are the displayed (1-based) page estimates.
	FirstPage, LastPage int
}

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithProgress registers a callback invoked before each batch.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithHistory records every run in store.
func WithHistory(store history.Store) Option {
	return func(p *Pipeline) { p.history = store }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithReviewer replaces the reviewer built from the provider.
func WithReviewer(r Reviewer) Option {
	return func(p *Pipeline) { p.reviewer = r }
}

// WithProviderName labels model metrics. Default: the configured provider name.
func WithProviderName(name string) Option {
	return func(p *Pipeline) { p.providerName = name }
}

// Pipeline runs documents with one configuration snapshot. It holds no
// per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg          *config.Config
	provider     llm.Provider
	providerName string
	reviewer     Reviewer
	chunker      *chunk.Chunker
	applier      revision.Applier
	history      history.Store
	metrics      *observe.Metrics
	progress     func(Progress)
	now          func() time.Time
}

// New returns a Pipeline for cfg. provider may be nil when only
// [Pipeline.Compare] is used.
func New(cfg *config.Config, provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:          cfg,
		provider:     provider,
		providerName: cfg.Provider.Name,
		chunker:      chunk.New(cfg.Review.MaxChunkChars),
		now:          time.Now,
	}
	if cfg.Revision.Guard {
		p.applier.Guard = &revision.Guard{}
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.providerName == "" {
		p.providerName = "llm"
	}
	if p.reviewer == nil && provider != nil {
		r := p.cfg.Review
		p.reviewer = llmreview.New(provider,
			llmreview.WithTemperature(r.Temperature),
			llmreview.WithMaxTokens(r.MaxTokens),
			llmreview.WithMaxRetries(r.MaxRetries),
			llmreview.WithBackoff(r.RetryBackoff),
			llmreview.WithRequestTimeout(r.RequestTimeout),
			llmreview.WithProtectMarkup(r.Protect()),
			llmreview.WithProviderName(p.providerName),
			llmreview.WithMetrics(p.metrics),
		)
	}
	return p
}

// Config returns the configuration snapshot of the pipeline.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// record appends run to the history store, if any. History failures are
// logged and never fail the run.
func (p *Pipeline) record(ctx context.Context, run history.Run) {
	if p.history == nil {
		return
	}
	if err := p.history.Append(context.WithoutCancel(ctx), run); err != nil {
		observe.Logger(ctx).Warn("cannot record run history", "err", err)
	}
}
