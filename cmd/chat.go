// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"mdqa/cli/internal/config"
	"mdqa/cli/internal/neterrors"
)

// chatCmd asks any number of questions over one connection.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `chat connects to the md-qa server once and answers questions until you type
quit, exit or q, press Ctrl+D or Ctrl+C.

If the connection is lost, the next question reconnects. When a config file is
in use it is watched, and a changed server.port or server.index_name applies to
the next question.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var reloads <-chan config.Config
		if s.resolved.Path != "" {
			w, err := config.NewWatcher(s.resolved.Path, config.DefaultDebounce, logger)
			if err != nil {
				logger.Warn("config watcher unavailable", "error", err)
			} else if ch, err := w.Watch(ctx); err != nil {
				logger.Warn("config watcher unavailable", "error", err)
				_ = w.Stop()
			} else {
				reloads = ch
				defer w.Stop()
			}
		}

		a := newAsker(s, cmd.OutOrStdout(), cmd.ErrOrStderr())
		a.spinner = spinnerEnabled()
		defer a.close()

		return runChat(ctx, a, cmd.InOrStdin(), reloads)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// readLines delivers lines from in until EOF. The goroutine may outlive the
// chat while blocked on a terminal read; the process exits right after.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// runChat is the read-ask loop. Failed questions are reported and the loop
// continues; only end of input, a quit command or ctx ends it.
func runChat(ctx context.Context, a *asker, in io.Reader, reloads <-chan config.Config) error {
	out := a.out
	pterm.Fprintln(out, pterm.NewStyle(pterm.FgLightCyan).Sprint("md-qa chat")+" "+pterm.Gray("(server "+a.s.serverURL+", type 'quit' to exit)"))

	goodbye := func() error {
		pterm.Fprintln(out, "Goodbye!")
		return nil
	}

	lines := readLines(in)
	for {
		fmt.Fprint(out, "Question: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return goodbye()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return goodbye()
			}
			line = l
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if isQuit(question) {
			return goodbye()
		}

		applyReloads(a, reloads)

		_, err := a.ask(ctx, question)
		switch {
		case err == nil, errors.Is(err, errServerReported):
		case ctx.Err() != nil:
			return goodbye()
		default:
			a.s.logger.Debug("question failed", "error", err)
		}
		fmt.Fprintln(out)
	}
}

// applyReloads takes the newest config delivered by the watcher, if any.
func applyReloads(a *asker, reloads <-chan config.Config) {
	for {
		select {
		case c, ok := <-reloads:
			if !ok {
				return
			}
			if a.s.apply(c) {
				a.drop()
				pterm.Fprintln(a.out, pterm.Gray("Config changed, now using "+neterrors.ExtractHost(a.s.serverURL)))
			}
			a.s.logger.Debug("config applied", "server", a.s.serverURL, "index", a.s.index)
		default:
			return
		}
	}
}
