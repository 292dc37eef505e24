// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides utilities for terminal operations such as clearing
// a prompt after the user answered it.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the width of the terminal on stdout, or 80 when unknown.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// LinesFor returns how many terminal rows text of textLength characters
// occupies at the given width, at least one.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := int(math.Ceil(float64(textLength) / float64(width)))
	if lines < 1 {
		lines = 1
	}
	return lines
}

// ClearPreviousLines clears text that was previously printed to w, such as a
// prompt together with the user's input.
//
// After Enter the cursor sits on a new line below the input, so one extra line
// is cleared.
func ClearPreviousLines(w io.Writer, textLength int) {
	linesToClear := LinesFor(textLength, Width()) + 1

	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // Move to start and clear entire line
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A") // Move up one line (don't move up on last iteration)
		}
	}
}
