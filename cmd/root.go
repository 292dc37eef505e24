// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for md-qa.
// It implements the one-shot question command, the interactive chat and the
// config editing subcommands using the Cobra CLI framework, and renders
// streamed answers with pterm.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"mdqa/cli/internal/logging"
	"mdqa/cli/internal/terminal"
	"mdqa/cli/internal/xdg"
)

var (
	showVersion  bool
	configPath   string
	serverURL    string
	indexName    string
	queryTimeout time.Duration
	verbose      bool
)

var (
	logger      = slog.New(slog.DiscardHandler)
	closeLogger = func() error { return nil }
)

// rootCmd represents the base command. With a QUESTION argument (or a line on
// stdin) it asks the server once and prints the streamed answer.
var rootCmd = &cobra.Command{
	Use:   "md-qa [QUESTION]",
	Short: "Ask questions about your Markdown documents",
	Long: `md-qa sends a question to a running md-qa server over WebSocket and prints
the answer as it streams in, followed by the source documents.

Config:
  --config PATH (if set) takes highest priority.
  Otherwise MD_QA_CONFIG is used when set.
  Otherwise ~/.md-qa/config.yaml is used when it exists.
  If no config file is available, built-in defaults are used (port 8765).

Input:
  QUESTION is optional. When omitted, one question is read from stdin (first line).`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
	RunE:              runAsk,
}

// Execute runs the CLI application and exits with its status code:
// 0 on success, 1 on failure, 2 on invalid usage.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = closeLogger()
	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default ws://127.0.0.1:<server.port>)")
	rootCmd.PersistentFlags().StringVar(&indexName, "index", "", "index to query (default server.index_name)")
	rootCmd.PersistentFlags().DurationVar(&queryTimeout, "timeout", 0, "give up on a question after this long (0 = wait indefinitely)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "print version and exit")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err, usage: cmd.UsageString()}
	})
}

// setupLogger builds the process logger: the state-dir log file always, the
// console only with --verbose.
func setupLogger(cmd *cobra.Command, _ []string) error {
	opts := logging.Options{Verbose: verbose, Console: cmd.ErrOrStderr()}
	if path, err := xdg.LogFile(); err == nil {
		opts.File = path
	}

	l, closeFn, err := logging.New(opts)
	if err != nil {
		// The log file is best effort; keep going without it.
		opts.File = ""
		l, closeFn, err = logging.New(opts)
		if err != nil {
			return err
		}
	}
	logger, closeLogger = l, closeFn
	logger.Debug("md-qa starting", "version", Version, "command", cmd.CommandPath())
	return nil
}

// usageError is a command-line mistake; it exits with status 2.
type usageError struct {
	err   error
	usage string
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err, usage: cmd.UsageString()}
		}
		return nil
	}
}

// exitError carries an exit status for a failure that was already explained
// to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func reported(err error) error {
	return &exitError{code: 1, err: err}
}

// reportError prints err unless it was already reported and returns the exit
// status for it.
func reportError(w io.Writer, err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var usage *usageError
	if errors.As(err, &usage) {
		pterm.Fprintln(w, "Error: "+usage.Error())
		pterm.Fprintln(w)
		pterm.Fprint(w, usage.usage)
		return 2
	}
	pterm.Fprintln(w, logging.PresentError("Error", err))
	return 1
}

// spinnerEnabled reports whether a waiting indicator can be drawn without
// corrupting piped output.
func spinnerEnabled() bool {
	return !verbose && terminal.IsInteractive(os.Stdout) && terminal.IsInteractive(os.Stderr)
}
