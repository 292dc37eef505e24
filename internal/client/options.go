// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"log/slog"
	"net/http"
	"time"
)

// ConnectionOptionFunc is a type that represents functions that modify the Connection config
type ConnectionOptionFunc func(*Connection)

// WithLogger specifies the logger for connection and exchange diagnostics. The default discards everything
func WithLogger(logger *slog.Logger) ConnectionOptionFunc {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventHandler specifies a function called for every event as it is added to a query result.
// It runs on the querying goroutine while the connection is held, so it must not call Query
func WithEventHandler(handler func(StreamEvent)) ConnectionOptionFunc {
	return func(c *Connection) {
		c.onEvent = handler
	}
}

// WithHandshakeTimeout specifies how long Connect waits for the WebSocket handshake
func WithHandshakeTimeout(timeout time.Duration) ConnectionOptionFunc {
	return func(c *Connection) {
		c.handshakeTimeout = timeout
	}
}

// WithReadLimit specifies the maximum size in bytes of an inbound message. Zero means no limit
func WithReadLimit(limit int64) ConnectionOptionFunc {
	return func(c *Connection) {
		c.readLimit = limit
	}
}

// WithHeader specifies extra HTTP headers sent with the handshake request
func WithHeader(header http.Header) ConnectionOptionFunc {
	return func(c *Connection) {
		c.header = header
	}
}
