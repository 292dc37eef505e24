// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameKind distinguishes the inbound frames a Transport reports.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	// FrameClose reports that the peer sent a close frame.
	FrameClose
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// Frame is one inbound message. Code is set for close frames only.
type Frame struct {
	Kind FrameKind
	Data []byte
	Code int
}

// Transport is a duplex message-based channel. A Connection uses it from one
// goroutine at a time, except for Interrupt and Close which may be called
// concurrently with a pending read or write.
type Transport interface {
	WriteText(data []byte) error
	// ReadFrame blocks for the next inbound frame. A peer close is reported as a
	// FrameClose frame, not as an error.
	ReadFrame() (Frame, error)
	// Interrupt unblocks a pending WriteText or ReadFrame. The transport is not
	// usable afterwards.
	Interrupt()
	Close() error
}

const closeGracePeriod = time.Second

// wsTransport adapts a gorilla/websocket connection.
type wsTransport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) WriteText(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) ReadFrame() (Frame, error) {
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		// gorilla reports a dropped TCP stream as close code 1006; no close frame
		// was actually received in that case.
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
			return Frame{Kind: FrameClose, Data: []byte(ce.Text), Code: ce.Code}, nil
		}
		return Frame{}, err
	}
	if kind == websocket.BinaryMessage {
		return Frame{Kind: FrameBinary, Data: data}, nil
	}
	return Frame{Kind: FrameText, Data: data}, nil
}

// Interrupt moves the deadline of the underlying net.Conn to now. Deadlines on
// the net.Conn are safe to set while another goroutine is blocked in I/O.
func (t *wsTransport) Interrupt() {
	_ = t.conn.NetConn().SetDeadline(time.Now())
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
