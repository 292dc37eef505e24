// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"fmt"
	"log/slog"

	"mdqa/cli/internal/protocol"
)

// exchangeState tracks one query/answer round trip.
type exchangeState int

const (
	stateIdle exchangeState = iota
	stateSent
	stateStreaming
	stateTerminal
)

func (s exchangeState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSent:
		return "sent"
	case stateStreaming:
		return "streaming"
	case stateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// exchange folds decoded server messages into an ordered event list.
type exchange struct {
	state  exchangeState
	events Events
	logger *slog.Logger
}

func newExchange(logger *slog.Logger) *exchange {
	return &exchange{state: stateIdle, events: Events{}, logger: logger}
}

func (e *exchange) transition(to exchangeState, reason string) {
	if e.state == to {
		return
	}
	e.logger.Debug("exchange state", "from", e.state, "to", to, "reason", reason)
	e.state = to
}

func (e *exchange) sent() {
	e.transition(stateSent, "query written")
}

func (e *exchange) done() bool {
	return e.state == stateTerminal
}

// closed ends the exchange with whatever was collected so far.
func (e *exchange) closed(frame Frame) {
	e.logger.Debug("server closed connection", "code", frame.Code, "reason", string(frame.Data), "events", len(e.events))
	e.transition(stateTerminal, "close frame")
}

// fold applies one server message. It reports the event added to the result,
// if any.
func (e *exchange) fold(msg protocol.ServerMessage) (StreamEvent, error) {
	var ev StreamEvent
	switch m := msg.(type) {
	case protocol.StreamStart:
		ev = StreamStart{}
		e.transition(stateStreaming, "stream_start")
	case protocol.StreamChunk:
		ev = StreamChunk{Text: m.Chunk}
		e.transition(stateStreaming, "stream_chunk")
	case protocol.StreamEnd:
		ev = StreamEnd{Sources: DeduplicateSources(m.Sources)}
		e.transition(stateTerminal, "stream_end")
	case protocol.Error:
		ev = ErrorEvent{Message: m.Message}
		e.transition(stateTerminal, "error")
	case protocol.Status:
		e.logger.Debug("ignoring status message", "status", m.Status, "message", m.Message)
		e.transition(stateStreaming, "status")
		return nil, nil
	case protocol.Response:
		e.logger.Debug("ignoring non-streaming response", "answer_len", len(m.Answer), "sources", len(m.Sources))
		e.transition(stateStreaming, "response")
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled server message %T", msg)
	}
	e.events = append(e.events, ev)
	return ev, nil
}
