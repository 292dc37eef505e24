// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package answer renders a streamed answer to the terminal.
package answer

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"mdqa/cli/internal/client"
)

// Renderer prints events as they arrive: chunks inline, then the sources.
type Renderer struct {
	out     io.Writer
	errOut  io.Writer
	onFirst func()
	started bool
	midLine bool
}

// NewRenderer creates a renderer writing answers to out and server errors to errOut.
func NewRenderer(out, errOut io.Writer) *Renderer {
	return &Renderer{out: out, errOut: errOut}
}

// OnFirstEvent registers fn to run once, before the first event is printed.
// The CLI uses it to stop the waiting spinner.
func (r *Renderer) OnFirstEvent(fn func()) {
	r.onFirst = fn
}

// Render processes a single event.
func (r *Renderer) Render(ev client.StreamEvent) {
	if !r.started {
		r.started = true
		if r.onFirst != nil {
			r.onFirst()
		}
	}

	switch e := ev.(type) {
	case client.StreamStart:
		// Nothing to show until text arrives
	case client.StreamChunk:
		if e.Text == "" {
			return
		}
		fmt.Fprint(r.out, e.Text)
		r.midLine = !strings.HasSuffix(e.Text, "\n")
	case client.StreamEnd:
		r.endLine()
		if len(e.Sources) > 0 {
			fmt.Fprint(r.out, "\n"+FormatSources(e.Sources))
		}
	case client.ErrorEvent:
		r.endLine()
		pterm.Fprintln(r.errOut, pterm.Red("Server error: "+e.Message))
	}
}

// Finish terminates a partial answer, e.g. after the server closed the
// connection without a stream_end.
func (r *Renderer) Finish() {
	r.endLine()
}

func (r *Renderer) endLine() {
	if r.midLine {
		fmt.Fprintln(r.out)
		r.midLine = false
	}
}

// FormatSources formats sources as a numbered list under a "Sources:" heading.
func FormatSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
