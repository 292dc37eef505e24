// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerr "mdqa/cli/internal/errors"
	"mdqa/cli/internal/protocol"
)

// startServer runs an in-process WebSocket server and returns its ws:// URL.
func startServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// replyWith answers every query with the same text frames.
func replyWith(frames ...string) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			for _, f := range frames {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
					return
				}
			}
		}
	}
}

// drain keeps reading so the handler returns once the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func dial(t *testing.T, url string, opts ...ConnectionOptionFunc) *Connection {
	t.Helper()
	conn, err := Connect(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestQueryStreamsAnswer(t *testing.T) {
	url := startServer(t, replyWith(
		`{"type":"stream_start"}`,
		`{"type":"stream_chunk","chunk":"Hello "}`,
		`{"type":"stream_chunk","chunk":"world!"}`,
		`{"type":"stream_end","sources":["/x.md","/y.md"]}`,
	))
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "What is Rust?", "")
	require.NoError(t, err)

	assert.Equal(t, Events{
		StreamStart{},
		StreamChunk{Text: "Hello "},
		StreamChunk{Text: "world!"},
		StreamEnd{Sources: []string{"/x.md", "/y.md"}},
	}, events)
	assert.Equal(t, "Hello world!", events.Answer())
	assert.Equal(t, []string{"/x.md", "/y.md"}, events.Sources())
	assert.Equal(t, url, conn.Address())
}

func TestQueryDeduplicatesSources(t *testing.T) {
	url := startServer(t, replyWith(`{"type":"stream_end","sources":["/a.md","/a.md","/b.md"]}`))
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{StreamEnd{Sources: []string{"/a.md", "/b.md"}}}, events)
}

func TestQueryServerErrorIsData(t *testing.T) {
	url := startServer(t, replyWith(`{"type":"error","message":"Index not ready"}`))
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{ErrorEvent{Message: "Index not ready"}}, events)

	msg, ok := events.ServerError()
	assert.True(t, ok)
	assert.Equal(t, "Index not ready", msg)
	assert.Nil(t, events.Sources())
}

func TestQueryStopsAtTerminalEvent(t *testing.T) {
	// Frames after the terminal event belong to nobody and must not be read
	// into this result.
	url := startServer(t, replyWith(
		`{"type":"stream_chunk","chunk":"a"}`,
		`{"type":"error","message":"boom"}`,
		`{"type":"stream_chunk","chunk":"late"}`,
	))
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{StreamChunk{Text: "a"}, ErrorEvent{Message: "boom"}}, events)
}

func TestQueryDecodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		target error
	}{
		{"unknown type", `{"type":"stream_pause"}`, protocol.ErrUnknownType},
		{"missing type", `{"chunk":"x"}`, protocol.ErrMissingType},
		{"malformed json", `{"type":`, protocol.ErrMalformed},
		{"missing field", `{"type":"stream_chunk"}`, protocol.ErrField},
		{"invalid utf-8", "{\"type\":\"stream_chunk\",\"chunk\":\"a\xffb\"}", protocol.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := startServer(t, replyWith(`{"type":"stream_start"}`, tt.frame))
			conn := dial(t, url)

			events, err := conn.Query(context.Background(), "q", "")
			require.Error(t, err)
			assert.Nil(t, events)
			assert.Equal(t, qaerr.DecodeFailed, qaerr.KindOf(err))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestQueryIgnoresStatusAndResponse(t *testing.T) {
	url := startServer(t, replyWith(
		`{"type":"status","status":"indexing","message":"3 files left"}`,
		`{"type":"stream_start"}`,
		`{"type":"response","answer":"full","sources":["/z.md"]}`,
		`{"type":"stream_chunk","chunk":"ok"}`,
		`{"type":"stream_end","sources":[]}`,
	))
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{StreamStart{}, StreamChunk{Text: "ok"}, StreamEnd{Sources: []string{}}}, events)
}

func TestQuerySkipsBinaryFrames(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x1, 0x2})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_end","sources":["/a.md"]}`))
		drain(conn)
	})
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{StreamEnd{Sources: []string{"/a.md"}}}, events)
}

func TestQueryEndsOnCloseFrame(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_start"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_chunk","chunk":"partial"}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		drain(conn)
	})
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, Events{StreamStart{}, StreamChunk{Text: "partial"}}, events)
	assert.Nil(t, events.Terminal())

	_, err = conn.Query(context.Background(), "again", "")
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
	assert.ErrorIs(t, err, ErrUnusable)
	assert.Contains(t, err.Error(), "server closed the connection")
}

func TestQueryAfterDecodeFailureNamesCause(t *testing.T) {
	url := startServer(t, replyWith(`{"type":"stream_start"}`, `{"type":"stream_pause"}`))
	conn := dial(t, url)

	_, err := conn.Query(context.Background(), "q", "")
	assert.Equal(t, qaerr.DecodeFailed, qaerr.KindOf(err))

	_, err = conn.Query(context.Background(), "again", "")
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
	assert.ErrorIs(t, err, ErrUnusable)
	assert.Contains(t, err.Error(), "previous response could not be decoded")
}

func TestQueryDroppedConnectionIsTransportFailure(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_start"}`))
		// No close frame: the TCP stream just ends.
		_ = conn.NetConn().Close()
	})
	conn := dial(t, url)

	events, err := conn.Query(context.Background(), "q", "")
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
}

func TestQuerySendsQueryMessage(t *testing.T) {
	received := make(chan string, 2)
	url := startServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_end","sources":[]}`))
		}
	})
	conn := dial(t, url)

	_, err := conn.Query(context.Background(), "What is Rust?", "docs")
	require.NoError(t, err)
	_, err = conn.Query(context.Background(), "And Go?", "")
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"query","question":"What is Rust?","index":"docs"}`, <-received)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(<-received), &second))
	assert.Equal(t, map[string]any{"type": "query", "question": "And Go?"}, second)
}

func TestQueryEventHandlerSeesEventsInOrder(t *testing.T) {
	url := startServer(t, replyWith(
		`{"type":"stream_start"}`,
		`{"type":"status","status":"ready"}`,
		`{"type":"stream_chunk","chunk":"one"}`,
		`{"type":"stream_end","sources":["/a.md","/a.md"]}`,
	))
	var seen []StreamEvent
	conn := dial(t, url, WithEventHandler(func(ev StreamEvent) {
		seen = append(seen, ev)
	}))

	events, err := conn.Query(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, []StreamEvent(events), seen)
}

func TestQueryContextDeadlineOnSilentServer(t *testing.T) {
	url := startServer(t, drain)
	conn := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	events, err := conn.Query(ctx, "q", "")
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = conn.Query(context.Background(), "again", "")
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
	assert.ErrorIs(t, err, ErrUnusable)
	assert.Contains(t, err.Error(), "previous query was interrupted")
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	conn, err := Connect(context.Background(), "ws://"+addr)
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Equal(t, qaerr.ConnectionFailed, qaerr.KindOf(err))
	assert.Contains(t, err.Error(), addr)
}

func TestConnectToPlainHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a websocket"))
	}))
	defer srv.Close()

	_, err := Connect(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.Error(t, err)
	assert.Equal(t, qaerr.ConnectionFailed, qaerr.KindOf(err))
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Contains(t, err.Error(), "200")
}

func TestConnectHandshakeTimeout(t *testing.T) {
	// Accepts TCP but never answers the upgrade request.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	start := time.Now()
	_, err = Connect(context.Background(), "ws://"+ln.Addr().String(), WithHandshakeTimeout(100*time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, qaerr.ConnectionFailed, qaerr.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectInvalidAddress(t *testing.T) {
	_, err := Connect(context.Background(), "http://127.0.0.1:8765")
	require.Error(t, err)
	assert.Equal(t, qaerr.ConnectionFailed, qaerr.KindOf(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	url := startServer(t, drain)
	conn, err := Connect(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	_, err = conn.Query(context.Background(), "q", "")
	assert.Equal(t, qaerr.TransportFailed, qaerr.KindOf(err))
}
