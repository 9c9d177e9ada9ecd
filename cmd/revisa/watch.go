package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/revisa/internal/config"
	"github.com/MrWong99/revisa/internal/health"
	"github.com/MrWong99/revisa/internal/inbox"
	"github.com/MrWong99/revisa/internal/observe"
	"github.com/MrWong99/revisa/internal/pipeline"
)

// shutdownTimeout bounds the graceful stop of the ops server and telemetry.
const shutdownTimeout = 15 * time.Second

func watchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Revise every document that is saved into a folder",
		Long: `Watch a folder and revise every new or modified document matching
watch.include once it has been quiet for watch.debounce. Lock files (~$*),
hidden directories and the output directories are ignored. With
watch.compare set, each revision is also compared against its original.

When --config is given the file is reloaded on change; every document run
uses the configuration in effect when it starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return c.watch(ctx, args[0])
		},
	}
}

func (c *cli) watch(ctx context.Context, root string) error {
	cfg := c.cfg

	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Observe.ServiceName,
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	provider, name, err := buildProvider(cfg, metrics)
	if err != nil {
		return err
	}
	hs, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer hs.close()

	current := func() *config.Config { return cfg }
	if c.configPath != "" {
		cw, err := config.NewWatcher(c.configPath, onReload)
		if err != nil {
			return err
		}
		defer cw.Stop()
		current = cw.Current
	}

	iw, err := inbox.NewWatcher(inbox.Config{
		Root:     root,
		Filter:   filter(cfg),
		Debounce: cfg.Watch.Debounce,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}
	if err := iw.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := iw.Stop(); err != nil {
			slog.Warn("inbox watcher close error", "err", err)
		}
		if n := iw.Dropped(); n > 0 {
			slog.Warn("documents dropped while all workers were busy", "count", n)
		}
	}()

	if addr := cfg.Observe.ListenAddr; addr != "" {
		checkers := append(hs.checkers(),
			health.Checker{Name: "llm", Check: provider.Ready},
			health.Checker{
				Name: "inbox",
				Check: func(context.Context) error {
					_, err := os.Stat(root)
					return err
				},
			},
		)
		srv, err := startOpsServer(addr, tel.MetricsHandler, metrics, checkers)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				slog.Warn("ops server shutdown error", "err", err)
			}
		}()
	}

	slog.Info("watching for documents, press Ctrl+C to stop",
		"root", root, "include", cfg.Watch.Include, "compare", cfg.Watch.Compare)

	newPipeline := func() *pipeline.Pipeline {
		opts := []pipeline.Option{pipeline.WithProviderName(name), pipeline.WithMetrics(metrics)}
		if hs != nil {
			opts = append(opts, pipeline.WithHistory(hs))
		}
		return pipeline.New(current(), provider, opts...)
	}
	err = pipeline.Watch(ctx, iw.Events(), newPipeline)
	if errors.Is(err, context.Canceled) {
		slog.Info("shutdown signal received, stopping")
		return nil
	}
	return err
}

// onReload applies what can change at runtime and warns about the rest.
func onReload(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.NeedsRestart() {
		slog.Warn("some changed sections take effect only after a restart", "sections", d.Sections())
	}
}

// startOpsServer serves /healthz, /readyz and /metrics on addr.
func startOpsServer(addr string, metricsHandler http.Handler, m *observe.Metrics, checkers []health.Checker) (*http.Server, error) {
	route := observe.Route(m)
	mux := http.NewServeMux()
	health.New(checkers...).Register(mux, route)
	mux.Handle("GET /metrics", route("metrics", metricsHandler))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ops server: listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "err", err)
		}
	}()
	slog.Info("ops server listening", "addr", ln.Addr().String())
	return srv, nil
}
