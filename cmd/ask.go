// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"mdqa/cli/internal/answer"
	"mdqa/cli/internal/client"
	"mdqa/cli/internal/logging"
	"mdqa/cli/internal/neterrors"
	"mdqa/cli/internal/terminal"
)

var errServerReported = errors.New("server reported an error")

// asker owns at most one connection and prints answers as they stream in.
// The connection is opened on first use and dropped after a failed query so
// that the next question reconnects.
type asker struct {
	s       *settings
	out     io.Writer
	errOut  io.Writer
	spinner bool

	conn     *client.Connection
	renderer *answer.Renderer
}

func newAsker(s *settings, out, errOut io.Writer) *asker {
	return &asker{s: s, out: out, errOut: errOut}
}

// ask sends one question and renders the answer. Every returned error has
// already been shown to the user.
func (a *asker) ask(ctx context.Context, question string) (client.Events, error) {
	if a.s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.s.timeout)
		defer cancel()
	}

	stopSpinner := func() {}
	if a.spinner {
		stopSpinner = startInlineSpinner(a.errOut, "Thinking", spinnerFrames, 120*time.Millisecond)
	}
	defer stopSpinner()

	a.renderer = answer.NewRenderer(a.out, a.errOut)
	a.renderer.OnFirstEvent(stopSpinner)

	if err := a.connect(ctx); err != nil {
		stopSpinner()
		neterrors.Present(a.errOut, err, a.s.serverURL)
		return nil, err
	}

	start := time.Now()
	events, err := a.conn.Query(ctx, question, a.s.index)
	stopSpinner()
	a.renderer.Finish()
	if err != nil {
		a.s.logger.Debug("query failed", "error", err, "elapsed", time.Since(start))
		a.drop()
		pterm.Fprintln(a.errOut, logging.FormatQueryFailure(err))
		return nil, err
	}
	a.s.logger.Debug("query finished", "events", len(events), "elapsed", time.Since(start))

	if events.Terminal() == nil {
		// The server closed the connection without finishing the answer.
		a.drop()
	}
	if _, failed := events.ServerError(); failed {
		return events, errServerReported
	}
	return events, nil
}

func (a *asker) connect(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}
	conn, err := client.Connect(ctx, a.s.serverURL,
		client.WithLogger(a.s.logger),
		client.WithEventHandler(func(ev client.StreamEvent) { a.renderer.Render(ev) }),
	)
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

// drop closes the current connection, if any.
func (a *asker) drop() {
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *asker) close() {
	a.drop()
}

func runAsk(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "md-qa %s\n", Version)
		return nil
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}

	question, err := readQuestion(args, cmd.InOrStdin(), cmd.OutOrStdout(), terminal.IsInteractive(os.Stdin))
	if err != nil {
		return err
	}
	if question == "" {
		return errors.New("no question provided (pass QUESTION argument or stdin)")
	}

	a := newAsker(s, cmd.OutOrStdout(), cmd.ErrOrStderr())
	a.spinner = spinnerEnabled()
	defer a.close()

	if _, err := a.ask(cmd.Context(), question); err != nil {
		return reported(err)
	}
	return nil
}

// readQuestion returns the positional question, or the first line of in.
// A prompt is shown when in is a terminal.
func readQuestion(args []string, in io.Reader, out io.Writer, interactive bool) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	if interactive {
		fmt.Fprint(out, "Question: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read question: %w", err)
	}
	return strings.TrimSpace(line), nil
}
