// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import "strings"

// StreamEvent is what a query observes from the server. The implementations are
// StreamStart, StreamChunk, StreamEnd and ErrorEvent.
type StreamEvent interface {
	isStreamEvent()
}

// StreamStart marks the beginning of the answer.
type StreamStart struct{}

// StreamChunk is one fragment of the answer text.
type StreamChunk struct {
	Text string
}

// StreamEnd completes the answer. Sources are deduplicated in first-seen order.
type StreamEnd struct {
	Sources []string
}

// ErrorEvent is a failure reported by the server. The exchange itself succeeded.
type ErrorEvent struct {
	Message string
}

func (StreamStart) isStreamEvent() {}
func (StreamChunk) isStreamEvent() {}
func (StreamEnd) isStreamEvent()   {}
func (ErrorEvent) isStreamEvent()  {}

// Events is the ordered result of one query.
type Events []StreamEvent

// Answer concatenates all chunks in arrival order.
func (e Events) Answer() string {
	var b strings.Builder
	for _, ev := range e {
		if c, ok := ev.(StreamChunk); ok {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// Sources returns the sources of the terminal StreamEnd, or nil when the
// exchange did not end with one.
func (e Events) Sources() []string {
	if end, ok := e.Terminal().(StreamEnd); ok {
		return end.Sources
	}
	return nil
}

// ServerError returns the server-reported failure, if the exchange ended with one.
func (e Events) ServerError() (string, bool) {
	if ev, ok := e.Terminal().(ErrorEvent); ok {
		return ev.Message, true
	}
	return "", false
}

// Terminal returns the final StreamEnd or ErrorEvent, or nil when the stream
// stopped without one (the server closed the connection).
func (e Events) Terminal() StreamEvent {
	if len(e) == 0 {
		return nil
	}
	switch last := e[len(e)-1].(type) {
	case StreamEnd, ErrorEvent:
		return last
	}
	return nil
}
