// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/pterm/pterm"

	qaerr "mdqa/cli/internal/errors"
)

// QueryFailureType represents the category of a failed query
type QueryFailureType int

const (
	QueryFailureUnknown QueryFailureType = iota
	QueryFailureDropped
	QueryFailureTimeout
	QueryFailureCanceled
	QueryFailureProtocol
)

// ClassifyQueryFailure categorizes an error returned by Connection.Query
func ClassifyQueryFailure(err error) QueryFailureType {
	switch {
	case err == nil:
		return QueryFailureUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return QueryFailureTimeout
	case errors.Is(err, context.Canceled):
		return QueryFailureCanceled
	case qaerr.IsKind(err, qaerr.DecodeFailed):
		return QueryFailureProtocol
	case qaerr.IsKind(err, qaerr.TransportFailed):
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return QueryFailureTimeout
		}
		return QueryFailureDropped
	}
	return QueryFailureUnknown
}

// FormatQueryFailure formats a failed query in a user-friendly way
func FormatQueryFailure(err error) string {
	failure := ClassifyQueryFailure(err)

	var builder strings.Builder

	title := "Query Failed"
	if failure == QueryFailureDropped {
		title = "Connection Lost"
	}
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title))
	builder.WriteString("\n\n")

	switch failure {
	case QueryFailureDropped:
		builder.WriteString("The connection to the md-qa server was interrupted before the answer completed.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • The server was stopped or restarted\n")
		builder.WriteString("  • The server crashed while generating the answer\n")

	case QueryFailureTimeout:
		builder.WriteString("The md-qa server did not finish answering in time.\n")
		builder.WriteString("This could be due to:\n")
		builder.WriteString("  • The index still being built after startup\n")
		builder.WriteString("  • A slow LLM provider\n")

	case QueryFailureCanceled:
		builder.WriteString("The question was cancelled before the answer completed.\n")

	case QueryFailureProtocol:
		builder.WriteString("The server sent a message this client does not understand.\n")
		builder.WriteString("The server and client versions may not match.\n")

	default:
		builder.WriteString("The question could not be answered.\n")
	}

	builder.WriteString("\n")

	switch failure {
	case QueryFailureTimeout:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Try again, or raise --timeout"))
	case QueryFailureProtocol:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Update md-qa so the client matches the server"))
	case QueryFailureCanceled:
	default:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Check that the md-qa server is running and ask again"))
	}

	builder.WriteString("\n")

	if err != nil {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	}

	return builder.String()
}
