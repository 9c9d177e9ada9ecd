// Command revisa proofreads .docx documents with a language model, writes the
// corrected copy and a correction report, and builds mirrored comparisons of
// an original and its revision.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MrWong99/revisa/internal/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "revisa"
)

// logLevel backs the default logger so a config reload can change it live.
var logLevel = new(slog.LevelVar)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// cli holds the flags shared by every subcommand and the configuration they
// resolve to.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func rootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Grammar revision and comparison of Word documents",
		Long: `Revisa sends the paragraphs and table cells of a .docx document to a
language model, applies the corrections it reports, and writes:

- a revised copy of the document,
- a JSON report of every correction,
- on request, a comparison copy with inline markup and a report block.

Without --config the built-in defaults are used and the API key is read
from REVISA_API_KEY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")

	cmd.AddCommand(
		reviseCmd(c),
		compareCmd(c),
		watchCmd(c),
		historyCmd(c),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRunE: func(*cobra.Command, []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// load resolves the configuration and installs the default logger.
func (c *cli) load() error {
	if c.configPath == "" {
		c.cfg = config.Default()
	} else {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", c.configPath)
			}
			return err
		}
		c.cfg = cfg
	}

	if c.logLevel != "" {
		lvl := config.LogLevel(c.logLevel)
		if !lvl.IsValid() {
			return fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", c.logLevel)
		}
		c.cfg.Log.Level = lvl
	}
	slog.SetDefault(newLogger(c.cfg.Log.Level))
	return nil
}

// newLogger returns a text logger on stderr whose level follows [logLevel].
func newLogger(level config.LogLevel) *slog.Logger {
	logLevel.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
