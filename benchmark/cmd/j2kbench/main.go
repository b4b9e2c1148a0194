// Command j2kbench times JPEG 2000 encode and decode calls of a codec binding over a
// corpus of medical imaging fixtures.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by every subcommand. Each invocation gets its own viper
// instance so tests can build commands side by side.
type app struct {
	v       *viper.Viper
	cfgFile string
	level   string
	json    bool
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "j2kbench",
		Short: "Benchmark JPEG 2000 codec bindings",
		Long: `j2kbench times encode and decode calls of a JPEG 2000 codec binding over a
fixed corpus of medical images and reports milliseconds per call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.stderr, a.level, a.json)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.level, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.json, "log-json", false, "log as JSON (default when stderr is not a terminal)")

	root.AddCommand(
		newRunCmd(a),
		newFixturesCmd(a),
		newInspectCmd(a),
		newCompareCmd(a),
		newVersionCmd(a),
	)
	return root
}

// newLogger builds the process logger on w.
func newLogger(w io.Writer, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if f, ok := w.(*os.File); ok && !asJSON {
		asJSON = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
