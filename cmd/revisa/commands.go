package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/revisa/internal/config"
	"github.com/MrWong99/revisa/internal/inbox"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/pipeline"
	"github.com/MrWong99/revisa/internal/report"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// filter builds the document filter of cfg. The output directories are
// always excluded so revised files are never picked up again.
func filter(cfg *config.Config) inbox.Filter {
	exclude := append([]string(nil), cfg.Watch.ExcludeDirs...)
	for _, dir := range []string{cfg.Output.Revised, cfg.Output.Comparisons, cfg.Output.Reports} {
		if abs, err := filepath.Abs(dir); err == nil {
			exclude = append(exclude, abs)
		}
	}
	return inbox.Filter{Include: cfg.Watch.Include, ExcludeDirs: exclude}
}

func reviseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "revise <file.docx|dir>...",
		Short: "Revise documents and write the corrected copies and reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			f := filter(c.cfg)
			var inputs []string
			for _, arg := range args {
				paths, err := f.Expand(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, paths...)
			}
			if len(inputs) == 0 {
				return errors.New("no documents found")
			}

			metrics := observe.DefaultMetrics()
			provider, name, err := buildProvider(c.cfg, metrics)
			if err != nil {
				return err
			}
			hs, err := openHistory(ctx, c.cfg.History)
			if err != nil {
				return err
			}
			defer hs.close()

			opts := []pipeline.Option{pipeline.WithProviderName(name), pipeline.WithMetrics(metrics)}
			if hs != nil {
				opts = append(opts, pipeline.WithHistory(hs))
			}
			if len(inputs) == 1 {
				opts = append(opts, pipeline.WithProgress(printProgress))
			}
			p := pipeline.New(c.cfg, provider, opts...)

			results, err := p.ReviseAll(ctx, inputs)
			for _, res := range results {
				if res != nil && res.Output != "" {
					printResult(res)
				}
			}
			return err
		},
	}
}

func compareCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <original.docx> <revised.docx>",
		Short: "Build the marked-up comparison of an original and its revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			hs, err := openHistory(ctx, c.cfg.History)
			if err != nil {
				return err
			}
			defer hs.close()

			var opts []pipeline.Option
			if hs != nil {
				opts = append(opts, pipeline.WithHistory(hs))
			}
			res, err := pipeline.New(c.cfg, nil, opts...).Compare(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
}

func historyCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			hs, err := openHistory(ctx, c.cfg.History)
			if err != nil {
				return err
			}
			if hs == nil {
				return errors.New("history is disabled")
			}
			defer hs.close()

			runs, err := hs.Recent(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tMODE\tDOCUMENT\tAPPLIED\tFAILED\tAUTO\tDURATION\tSTATUS")
			for _, r := range runs {
				status := "ok"
				if !r.Succeeded() {
					status = "error: " + r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Mode, filepath.Base(r.Input),
					r.Applied, r.Failed, r.AutoDetected, r.Duration.Round(time.Millisecond), status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list; 0 lists all")
	cmd.AddCommand(historyShowCmd(c))
	return cmd
}

func historyShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the corrections of one run (needs history.postgres_dsn)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			hs, err := openHistory(ctx, c.cfg.History)
			if err != nil {
				return err
			}
			defer hs.close()
			if hs == nil || hs.pg == nil {
				return errors.New("run details are stored only in postgres; set history.postgres_dsn")
			}

			records, err := hs.pg.Records(ctx, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAGE\tLOCATION\tCATEGORY\tERROR\tCORRECTION\tAPPLIED")
			for _, g := range report.ByPage(records) {
				for _, r := range g.Records {
					fmt.Fprintf(w, "%d\t%s\t%s\t%q\t%q\t%t\n",
						g.Page+1, r.Location, r.Category, r.Error, r.Correction, r.Applied)
				}
			}
			return w.Flush()
		},
	}
}

func printProgress(p pipeline.Progress) {
	fmt.Fprintf(os.Stderr, "batch %d/%d: paragraphs %d-%d, pages %d-%d\n",
		p.Batch, p.Batches, p.First, p.Last, p.FirstPage, p.LastPage)
}

func printResult(res *pipeline.Result) {
	s := report.Summarize(res.Records, res.ErrorsFound)
	fmt.Printf("%s\n  output:  %s\n  report:  %s\n  applied: %d  failed: %d  auto-detected: %d  unresolved: %d\n",
		res.Input, res.Output, res.Report, s.Applied, s.Failed, s.AutoDetected, res.Unresolved)
	if res.FailedBatches > 0 {
		slog.Warn("some batches got no answer from the model", "document", res.Input,
			"failed_batches", res.FailedBatches, "batches", res.Batches)
	}
}
