package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/revisa/internal/chunk"
	"github.com/MrWong99/revisa/internal/document"
	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/report"
	"github.com/MrWong99/revisa/internal/review/llmreview"
	"github.com/MrWong99/revisa/internal/revision"
	"github.com/MrWong99/revisa/pkg/docx"
)

// ErrNoReviewer is returned by [Pipeline.Revise] when the pipeline was built
// without a provider or reviewer.
var ErrNoReviewer = errors.New("pipeline: no language model configured")

// Result is the outcome of one document run.
type Result struct {
	RunID  string
	Input  string
	Output string
	Report string

	// Records are all correction records in discovery order: model records
	// batch by batch, then reconciliation records.
	Records []revision.Record

	Units   int
	Batches int

	// ErrorsFound is the number of suggestions the model returned.
	ErrorsFound int

	// Unresolved counts suggestions that matched no unit.
	Unresolved int

	// FailedBatches counts batches whose model call exhausted its retries;
	// MalformedBatches those whose answer was not valid JSON.
	FailedBatches    int
	MalformedBatches int

	Duration time.Duration
}

// Revise runs the processor on the document at input and writes the revised
// document and its JSON report to the configured output directories.
//
// Only a structural mismatch, an unreadable input, an unwritable output or a
// cancelled ctx fail the run. Cancellation is honoured between batches.
func (p *Pipeline) Revise(ctx context.Context, input string) (res *Result, err error) {
	if p.reviewer == nil {
		return nil, ErrNoReviewer
	}
	runID := history.NewRunID()
	ctx = observe.WithRun(ctx, runID, input)
	ctx, span := observe.StartSpan(ctx, "pipeline.Revise", trace.WithAttributes(
		attribute.String("revisa.run_id", runID),
		attribute.String("revisa.document", input),
	))
	defer span.End()

	start := p.now()
	res = &Result{RunID: runID, Input: input}
	p.metrics.ActiveDocuments.Add(ctx, 1)
	defer func() {
		p.metrics.ActiveDocuments.Add(ctx, -1)
		res.Duration = p.now().Sub(start)
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.metrics.DocumentDuration.Record(ctx, res.Duration.Seconds(),
			metric.WithAttributes(attribute.String("mode", "revise")))
		p.metrics.RecordDocument(ctx, "revise", status)
		p.record(ctx, revisionRun(res, start, err))
	}()

	log := observe.Logger(ctx)
	data, err := os.ReadFile(input)
	if err != nil {
		return res, fmt.Errorf("pipeline: read %q: %w", input, err)
	}
	original, err := docx.Read(data)
	if err != nil {
		return res, fmt.Errorf("pipeline: open %q: %w", input, err)
	}
	working, err := docx.Read(data)
	if err != nil {
		return res, fmt.Errorf("pipeline: open %q: %w", input, err)
	}

	units, err := document.Enumerate(original, working)
	if err != nil {
		return res, fmt.Errorf("pipeline: %q: %w", input, err)
	}
	batches := p.chunker.Split(units)
	res.Units, res.Batches = len(units), len(batches)
	log.Info("revision started", "units", len(units), "batches", len(batches))

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("pipeline: cancelled before batch %d: %w", b.Index+1, err)
		}
		if err := p.reviseBatch(ctx, b, len(batches), res); err != nil {
			return res, err
		}
	}

	auto := revision.Reconcile(units, res.Records)
	for _, r := range auto {
		log.Debug("unreported change detected", "paragraph", r.Seq, "location", r.Location,
			"subtype", r.Subcategory)
		p.metrics.RecordCorrection(ctx, string(r.Source), true)
	}
	res.Records = append(res.Records, auto...)

	res.Output = RevisedPath(p.cfg.Output.Revised, input)
	if err := save(working, res.Output); err != nil {
		return res, err
	}
	res.Report = ReportPath(p.cfg.Output.Reports, input)
	rep := report.NewJSONReport(runID, input, res.Records, res.ErrorsFound)
	if err := report.WriteJSON(res.Report, rep); err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}

	log.Info("revision finished",
		"output", res.Output,
		"errors_found", res.ErrorsFound,
		"applied", rep.Summary.Applied,
		"failed", rep.Summary.Failed,
		"auto_detected", rep.Summary.AutoDetected,
		"unresolved", res.Unresolved,
		"failed_batches", res.FailedBatches,
	)
	return res, nil
}

// reviseBatch reviews one batch and applies its suggestions in answer order.
// Only cancellation is returned as an error.
func (p *Pipeline) reviseBatch(ctx context.Context, b chunk.Batch, total int, res *Result) error {
	ctx, span := observe.StartSpan(ctx, "pipeline.batch", trace.WithAttributes(
		attribute.Int("batch.index", b.Index),
		attribute.Int("batch.units", len(b.Units)),
	))
	defer span.End()
	start := p.now()
	defer func() {
		p.metrics.BatchDuration.Record(ctx, p.now().Sub(start).Seconds())
	}()

	log := observe.Logger(ctx)
	if p.progress != nil {
		first, last := b.First(), b.Last()
		p.progress(Progress{
			Batch:     b.Index + 1,
			Batches:   total,
			First:     first,
			Last:      last,
			FirstPage: document.PageOf(first) + 1,
			LastPage:  document.PageOf(last) + 1,
		})
	}

	out, err := p.reviewer.Review(ctx, b)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return fmt.Errorf("pipeline: batch %d: %w", b.Index+1, err)
	default:
		res.FailedBatches++
		log.Warn("batch yields no corrections", "batch", b.Index+1, "first", b.First(),
			"last", b.Last(), "err", err)
		if !errors.Is(err, llmreview.ErrExhausted) {
			p.metrics.RecordProviderError(ctx, p.providerName, "review")
		}
		return nil
	}
	if out.Malformed {
		res.MalformedBatches++
	}
	res.ErrorsFound += len(out.Suggestions)

	for _, s := range out.Suggestions {
		if !s.Usable() {
			log.Debug("ignoring empty suggestion", "batch", b.Index+1, "paragraph", s.Paragraph)
			continue
		}
		rec, _, err := p.applier.Attempt(s, b.Units)
		if errors.Is(err, revision.ErrUnresolved) {
			res.Unresolved++
			p.metrics.Unresolved.Add(ctx, 1)
			log.Warn("correction matches no unit", "batch", b.Index+1, "paragraph", s.Paragraph,
				"error_text", s.Error)
			continue
		}
		res.Records = append(res.Records, rec)
		p.metrics.RecordCorrection(ctx, string(rec.Source), rec.Applied)
		if err != nil {
			p.metrics.RecordPatchFailure(ctx, rec.Reason)
			log.Warn("correction not applied", "paragraph", rec.Seq, "location", rec.Location,
				"error_text", rec.Error, "reason", rec.Reason, "hint", rec.Hint)
			continue
		}
		log.Debug("correction applied", "paragraph", rec.Seq, "location", rec.Location,
			"strategy", rec.Strategy)
	}
	span.SetAttributes(attribute.Int("batch.suggestions", len(out.Suggestions)))
	return nil
}

func save(doc *docx.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pipeline: create dir for %q: %w", path, err)
	}
	if err := doc.Save(path); err != nil {
		return fmt.Errorf("pipeline: save %q: %w", path, err)
	}
	return nil
}

func revisionRun(res *Result, start time.Time, err error) history.Run {
	s := report.Summarize(res.Records, res.ErrorsFound)
	run := history.Run{
		ID:           res.RunID,
		Mode:         history.ModeRevise,
		Input:        res.Input,
		Output:       res.Output,
		Report:       res.Report,
		StartedAt:    start.UTC(),
		Duration:     res.Duration,
		Units:        res.Units,
		Batches:      res.Batches,
		ErrorsFound:  res.ErrorsFound,
		Corrections:  s.TotalCorrections,
		Applied:      s.Applied,
		Failed:       s.Failed,
		AutoDetected: s.AutoDetected,
		Unresolved:   res.Unresolved,
		Records:      res.Records,
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}
