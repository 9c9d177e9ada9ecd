package pipeline

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/revisa/internal/diff"
	"github.com/MrWong99/revisa/internal/document"
	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/report"
	"github.com/MrWong99/revisa/internal/revision"
	"github.com/MrWong99/revisa/pkg/docx"
)

// rewriter is the part of a unit node the comparer marks up.
type rewriter interface {
	Rewrite(runs []docx.Run)
}

// Compare builds the mirrored comparison of original and revised: a copy of
// revised in which every changed unit is re-rendered with diff markup, headed
// by the report block. The comparison and its JSON report are written to the
// configured output directories.
func (p *Pipeline) Compare(ctx context.Context, original, revised string) (res *Result, err error) {
	runID := history.NewRunID()
	ctx = observe.WithRun(ctx, runID, revised)
	ctx, span := observe.StartSpan(ctx, "pipeline.Compare", trace.WithAttributes(
		attribute.String("revisa.run_id", runID),
		attribute.String("revisa.original", original),
		attribute.String("revisa.revised", revised),
	))
	defer span.End()

	start := p.now()
	res = &Result{RunID: runID, Input: original}
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
			metric.WithAttributes(attribute.String("mode", "compare")))
		p.metrics.RecordDocument(ctx, "compare", status)
		run := revisionRun(res, start, err)
		run.Mode = history.ModeCompare
		run.Revised = revised
		p.record(ctx, run)
	}()

	orig, err := docx.Open(original)
	if err != nil {
		return res, fmt.Errorf("pipeline: open %q: %w", original, err)
	}
	data, err := os.ReadFile(revised)
	if err != nil {
		return res, fmt.Errorf("pipeline: read %q: %w", revised, err)
	}
	ref, err := docx.Read(data)
	if err != nil {
		return res, fmt.Errorf("pipeline: open %q: %w", revised, err)
	}
	out, err := docx.Read(data)
	if err != nil {
		return res, fmt.Errorf("pipeline: open %q: %w", revised, err)
	}

	// ref keeps the revised text intact while out is marked up.
	refUnits, outUnits, err := document.EnumeratePair(orig, ref, out)
	if err != nil {
		return res, fmt.Errorf("pipeline: compare %q with %q: %w", original, revised, err)
	}
	res.Units = len(refUnits)

	log := observe.Logger(ctx)
	for i, u := range refUnits {
		rec, changed := revision.Compare(u)
		if !changed {
			continue
		}
		res.Records = append(res.Records, rec)
		p.metrics.RecordCorrection(ctx, string(rec.Source), true)
		if err := markup(outUnits[i], u.Original, u.Text()); err != nil {
			log.Warn("unit left without markup", "paragraph", u.Seq, "location", u.Label, "err", err)
		}
	}
	res.ErrorsFound = len(res.Records)

	inserted := report.Prepend(out, res.Records)
	res.Output = ComparisonPath(p.cfg.Output.Comparisons, revised)
	if err := save(out, res.Output); err != nil {
		return res, err
	}
	res.Report = ComparisonReportPath(p.cfg.Output.Reports, revised)
	if err := report.WriteJSON(res.Report, report.NewJSONReport(runID, revised, res.Records, res.ErrorsFound)); err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}

	log.Info("comparison finished", "output", res.Output, "changed_units", len(res.Records),
		"report_paragraphs", inserted)
	return res, nil
}

// markup re-renders u with the diff of before and after. A panic while
// rendering falls back to the plain revised text.
func markup(u *document.Unit, before, after string) (err error) {
	rw, ok := u.Node.(rewriter)
	if !ok {
		return fmt.Errorf("pipeline: unit %d cannot hold styled runs", u.Seq)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: render unit %d: recovered panic: %v", u.Seq, r)
			u.SetText(after)
		}
	}()
	rw.Rewrite(report.Runs(diff.Render(before, after)))
	return nil
}
