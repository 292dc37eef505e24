// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package client talks to a document Q&A server over WebSocket. A Connection
// sends one question at a time and collects the streamed answer into Events.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	qaerr "mdqa/cli/internal/errors"
	"mdqa/cli/internal/protocol"
)

const defaultHandshakeTimeout = 10 * time.Second

// ErrUnusable is wrapped by the error Query returns on a Connection that an
// earlier failure, interruption or close has left unusable.
var ErrUnusable = errors.New("connection is no longer usable")

// Connection is a session with a Q&A server. It is safe for concurrent use;
// concurrent queries are serialized so exchanges never interleave.
type Connection struct {
	address   string
	transport Transport
	// lock has one slot. Holding it grants exclusive use of the transport.
	lock chan struct{}
	// broken holds the reason the Connection stopped accepting queries.
	broken atomic.Pointer[string]

	logger           *slog.Logger
	onEvent          func(StreamEvent)
	handshakeTimeout time.Duration
	readLimit        int64
	header           http.Header

	closeOnce sync.Once
	closeErr  error
}

func newConnection(address string, opts ...ConnectionOptionFunc) *Connection {
	c := &Connection{
		address:          address,
		lock:             make(chan struct{}, 1),
		logger:           slog.New(slog.DiscardHandler),
		handshakeTimeout: defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New returns a Connection over an already established transport.
func New(transport Transport, opts ...ConnectionOptionFunc) *Connection {
	c := newConnection("", opts...)
	c.transport = transport
	return c
}

// Connect opens a WebSocket connection to address, for example
// "ws://127.0.0.1:8765". Failures are reported with kind ConnectionFailed.
func Connect(ctx context.Context, address string, opts ...ConnectionOptionFunc) (*Connection, error) {
	c := newConnection(address, opts...)

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, address, c.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (HTTP %s)", err, resp.Status)
		}
		return nil, qaerr.Wrap(qaerr.ConnectionFailed, "connect to "+address, err)
	}
	if c.readLimit > 0 {
		conn.SetReadLimit(c.readLimit)
	}
	c.transport = newWSTransport(conn)
	c.logger.Debug("connected", "address", address)
	return c, nil
}

// Address returns the address passed to Connect, or "" for New.
func (c *Connection) Address() string {
	return c.address
}

// Query sends question (and index, when not empty) and reads server messages
// until a stream_end, an error message, or a close frame. An ErrorEvent in the
// result is a successful exchange; inspect Events.ServerError.
//
// A cancelled ctx interrupts the exchange. After any failure the Connection is
// no longer usable and every later Query fails with TransportFailed wrapping
// ErrUnusable; the message names what broke it. This includes DecodeFailed:
// frames left over from the failed exchange would otherwise be read as the
// answer to the next question, so callers reconnect instead of reusing the
// transport.
func (c *Connection) Query(ctx context.Context, question, index string) (Events, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, qaerr.Wrap(qaerr.TransportFailed, "wait for connection", err)
	}
	defer c.release()

	if reason := c.broken.Load(); reason != nil {
		return nil, qaerr.Wrap(qaerr.TransportFailed, *reason, ErrUnusable)
	}

	stop := context.AfterFunc(ctx, c.transport.Interrupt)
	events, err := c.exchange(ctx, protocol.QueryMessage{Question: question, Index: index})
	if !stop() {
		c.markBroken("previous query was interrupted")
	}
	if err != nil {
		if qaerr.IsKind(err, qaerr.DecodeFailed) {
			c.markBroken("previous response could not be decoded")
		} else {
			c.markBroken("previous query failed")
		}
		return nil, err
	}
	return events, nil
}

func (c *Connection) exchange(ctx context.Context, query protocol.QueryMessage) (Events, error) {
	ex := newExchange(c.logger)

	payload, err := protocol.EncodeQuery(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if err := c.transport.WriteText(payload); err != nil {
		return nil, c.transportError(ctx, "send query", err)
	}
	ex.sent()

	for !ex.done() {
		frame, err := c.transport.ReadFrame()
		if err != nil {
			return nil, c.transportError(ctx, "receive message", err)
		}

		switch frame.Kind {
		case FrameClose:
			ex.closed(frame)
			c.markBroken("server closed the connection")
		case FrameText:
			msg, err := protocol.DecodeServerMessage(frame.Data)
			if err != nil {
				return nil, qaerr.Wrap(qaerr.DecodeFailed, "decode server message", err)
			}
			ev, err := ex.fold(msg)
			if err != nil {
				return nil, qaerr.Wrap(qaerr.DecodeFailed, "decode server message", err)
			}
			if ev != nil && c.onEvent != nil {
				c.onEvent(ev)
			}
		default:
			c.logger.Debug("skipping frame", "kind", frame.Kind, "size", len(frame.Data))
		}
	}
	return ex.events, nil
}

// transportError attributes an I/O failure to ctx when ctx caused it.
func (c *Connection) transportError(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return qaerr.Wrap(qaerr.TransportFailed, msg, err)
}

// markBroken records the first reason the Connection became unusable.
func (c *Connection) markBroken(reason string) {
	c.broken.CompareAndSwap(nil, &reason)
}

func (c *Connection) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) release() {
	<-c.lock
}

// Close closes the transport. A query in flight fails with TransportFailed.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.markBroken("connection closed")
		if c.transport != nil {
			c.closeErr = c.transport.Close()
		}
	})
	return c.closeErr
}
