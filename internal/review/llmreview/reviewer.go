// Package llmreview asks a language model for the grammatical errors of one
// batch of units at a time.
//
// The [Reviewer] renders the batch as a numbered paragraph block, protects
// URLs, bracketed markup and e-mail addresses behind placeholders, and
// expects a JSON object with a list of corrections. Failed calls are retried
// with exponential backoff; an answer that is not JSON is not retried and
// counts as "no corrections". When every attempt fails, Review returns
// [ErrExhausted] and the caller moves on to the next batch.
package llmreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/revisa/internal/chunk"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/resilience"
	"github.com/MrWong99/revisa/internal/revision"
	"github.com/MrWong99/revisa/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 10000
	defaultMaxRetries  = 3
	defaultBackoff     = time.Second
)

// ErrExhausted is returned by [Reviewer.Review] when every attempt failed.
var ErrExhausted = errors.New("llmreview: retry budget exhausted")

// Option is a functional option for configuring a [Reviewer].
type Option func(*Reviewer)

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(r *Reviewer) { r.temperature = temp }
}

// WithMaxTokens caps the completion length. Default: 10000.
func WithMaxTokens(n int) Option {
	return func(r *Reviewer) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithMaxRetries sets the total number of attempts per batch. Default: 3.
func WithMaxRetries(n int) Option {
	return func(r *Reviewer) {
		if n > 0 {
			r.retry.Attempts = n
		}
	}
}

// WithBackoff sets the wait after the first failed attempt; it doubles after
// every further failure. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(r *Reviewer) { r.retry.Backoff = d }
}

// WithRequestTimeout bounds each attempt. Zero leaves attempts unbounded.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Reviewer) { r.timeout = d }
}

// WithProtectMarkup toggles placeholder protection. Default: on.
func WithProtectMarkup(on bool) Option {
	return func(r *Reviewer) { r.protect = on }
}

// WithProviderName labels metrics and spans. Default: "llm".
func WithProviderName(name string) Option {
	return func(r *Reviewer) { r.providerName = name }
}

// WithMetrics records call latency and outcomes. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Reviewer) { r.metrics = m }
}

// Reviewer turns batches into correction suggestions. It holds no per-batch
// state and is safe for concurrent use.
type Reviewer struct {
	llm          llm.Provider
	providerName string
	temperature  float64
	maxTokens    int
	retry        resilience.RetryPolicy
	timeout      time.Duration
	protect      bool
	metrics      *observe.Metrics
}

// New returns a [Reviewer] backed by provider.
func New(provider llm.Provider, opts ...Option) *Reviewer {
	r := &Reviewer{
		llm:          provider,
		providerName: "llm",
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
		retry:        resilience.RetryPolicy{Attempts: defaultMaxRetries, Backoff: defaultBackoff},
		protect:      true,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Result is the outcome of one reviewed batch.
type Result struct {
	// Suggestions are the model's corrections in answer order, with
	// placeholders restored. Unusable entries are kept; the caller decides.
	Suggestions []revision.Suggestion

	// Malformed is set when the answer was not the expected JSON.
	Malformed bool

	// Truncated is set, along with Malformed, when the backend stopped at
	// its token limit.
	Truncated bool

	// Attempts is the number of model calls made.
	Attempts int

	Usage llm.Usage
}

// Review sends batch to the model and returns its suggestions. An empty batch
// makes no call. A cancelled ctx is returned as is; any other failure after
// the last attempt is wrapped in [ErrExhausted].
func (r *Reviewer) Review(ctx context.Context, batch chunk.Batch) (Result, error) {
	if len(batch.Units) == 0 {
		return Result{}, nil
	}

	ctx, span := observe.StartSpan(ctx, "llmreview.Review", trace.WithAttributes(
		attribute.Int("batch.index", batch.Index),
		attribute.Int("batch.first", batch.First()),
		attribute.Int("batch.last", batch.Last()),
		attribute.String("llm.provider", r.providerName),
	))
	defer span.End()

	var p *protector
	var protect func(string) string
	if r.protect {
		p = newProtector()
		protect = p.protect
	}
	req := llm.CompletionRequest{
		SystemPrompt: SystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: BuildBlock(batch, protect)}},
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
		JSONObject:   true,
	}
	if p != nil && p.len() > 0 {
		span.SetAttributes(attribute.Int("llmreview.protected", p.len()))
	}

	var (
		res  Result
		resp *llm.CompletionResponse
	)
	err := resilience.Retry(ctx, r.retry, func(attempt int) error {
		res.Attempts = attempt + 1
		var err error
		resp, err = r.complete(ctx, req)
		if err != nil {
			observe.Logger(ctx).Warn("model call failed",
				"batch", batch.Index, "attempt", attempt+1, "error", err)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) {
			return res, err
		}
		r.metrics.RecordProviderError(ctx, r.providerName, "exhausted")
		return res, fmt.Errorf("%w: batch %d: %w", ErrExhausted, batch.Index, err)
	}

	res.Usage = resp.Usage
	suggestions, perr := parseResponse(resp.Content)
	if perr != nil {
		res.Malformed = true
		if resp.FinishReason == "length" {
			res.Truncated = true
			r.metrics.RecordProviderError(ctx, r.providerName, "truncated")
			observe.Logger(ctx).Warn("model answer was cut off; raise review.max_tokens or lower review.max_chunk_chars",
				"batch", batch.Index, "completion_tokens", resp.Usage.CompletionTokens)
			return res, nil
		}
		r.metrics.RecordProviderError(ctx, r.providerName, "malformed")
		observe.Logger(ctx).Warn("model answer is not valid JSON; batch yields no corrections",
			"batch", batch.Index, "error", perr)
		return res, nil
	}
	if p != nil {
		for i := range suggestions {
			suggestions[i].Error = p.restore(suggestions[i].Error)
			suggestions[i].Correction = p.restore(suggestions[i].Correction)
		}
	}
	res.Suggestions = suggestions

	span.SetAttributes(
		attribute.Int("llmreview.suggestions", len(res.Suggestions)),
		attribute.Int("llmreview.attempts", res.Attempts),
	)
	return res, nil
}

// complete runs one bounded model call and records its latency.
func (r *Reviewer) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.llm.Complete(ctx, req)
	status := "ok"
	if err == nil && resp == nil {
		err = errors.New("llmreview: empty response")
	}
	if err != nil {
		status = "error"
	}
	r.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", r.providerName), attribute.String("status", status)))
	r.metrics.RecordProviderRequest(ctx, r.providerName, status)
	return resp, err
}

// wireCorrection is the JSON shape of one correction. Models are sloppy
// about the paragraph number, so it is decoded leniently.
type wireCorrection struct {
	Paragraph  json.RawMessage `json:"paragraph"`
	Error      string          `json:"error"`
	Correction string          `json:"correction"`
	Type       string          `json:"type"`
}

type wireResponse struct {
	Corrections []wireCorrection `json:"corrections"`
}

// parseResponse decodes the model's answer. It strips markdown code fences
// before parsing.
func parseResponse(content string) ([]revision.Suggestion, error) {
	var w wireResponse
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &w); err != nil {
		return nil, fmt.Errorf("llmreview: parse response: %w", err)
	}
	out := make([]revision.Suggestion, 0, len(w.Corrections))
	for _, c := range w.Corrections {
		out = append(out, revision.Suggestion{
			Paragraph:  paragraphNumber(c.Paragraph),
			Error:      c.Error,
			Correction: c.Correction,
			Type:       c.Type,
		})
	}
	return out, nil
}

// paragraphNumber accepts 7, 7.0 and "7"; anything else is 0 (no hint).
func paragraphNumber(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models put around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
