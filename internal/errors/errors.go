// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so the CLI can tell "the exchange itself failed" apart
// from the server reporting an application error as data.
//
// The package supports wrapping underlying errors while maintaining error kind information;
// errors.Is and errors.As from the standard library reach the wrapped cause.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionFailed indicates the WebSocket handshake could not be completed.
	ConnectionFailed Kind = "connection_failed"
	// TransportFailed indicates a send or receive failure during an in-flight query.
	// The connection should be treated as dead afterwards.
	TransportFailed Kind = "transport_failed"
	// DecodeFailed indicates a malformed or unrecognized inbound payload.
	DecodeFailed Kind = "decode_failed"
	// ConfigFailed indicates the config file could not be read, parsed or written.
	ConfigFailed Kind = "config_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the outermost *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
