// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package protocol defines the wire schema of the question/answer WebSocket protocol.
// Messages are JSON objects sent as text frames, discriminated by their "type" field.
//
// The client sends exactly one shape (a query); the server answers with a stream of
// six possible message kinds. Decoding is strict: a missing or unknown discriminator,
// or a required field that is absent, null or of the wrong JSON type, is a decode
// failure rather than a message to skip.
package protocol

import (
	"encoding/json"
	"errors"
)

// MessageType is the value of the "type" discriminator.
type MessageType string

const (
	TypeQuery       MessageType = "query"
	TypeStreamStart MessageType = "stream_start"
	TypeStreamChunk MessageType = "stream_chunk"
	TypeStreamEnd   MessageType = "stream_end"
	TypeError       MessageType = "error"
	TypeStatus      MessageType = "status"
	TypeResponse    MessageType = "response"
)

// Decode failures wrap one of these sentinels.
var (
	// ErrMalformed indicates the payload is not a JSON object.
	ErrMalformed = errors.New("malformed message")
	// ErrMissingType indicates the "type" field is absent or not a string.
	ErrMissingType = errors.New("missing message type")
	// ErrUnknownType indicates a "type" value outside the known set.
	ErrUnknownType = errors.New("unknown message type")
	// ErrField indicates a required field is missing or has the wrong type.
	ErrField = errors.New("invalid field")
)

// QueryMessage is the single client-to-server message.
// An empty Index means no index was supplied and the field is left off the wire.
type QueryMessage struct {
	Question string
	Index    string
}

// ServerMessage is one decoded server-to-client message.
// The set of implementations is closed: StreamStart, StreamChunk, StreamEnd,
// Error, Status and Response.
type ServerMessage interface {
	Type() MessageType
	isServerMessage()
}

// StreamStart marks the beginning of streamed output.
type StreamStart struct{}

// StreamChunk carries one fragment of the answer. Fragments are concatenated
// in arrival order.
type StreamChunk struct {
	Chunk string
}

// StreamEnd is terminal and lists the sources used for the answer.
type StreamEnd struct {
	Sources []string
}

// Error is terminal and carries a server-side failure reason.
type Error struct {
	Message string
}

// Status is informational. Message is empty when the server sent none.
type Status struct {
	Status  string
	Message string
}

// Response is the non-streaming full-answer shape. Sources are kept as raw JSON
// because servers have sent both plain paths and objects here.
type Response struct {
	Answer  string
	Sources []json.RawMessage
}

func (StreamStart) Type() MessageType { return TypeStreamStart }
func (StreamChunk) Type() MessageType { return TypeStreamChunk }
func (StreamEnd) Type() MessageType   { return TypeStreamEnd }
func (Error) Type() MessageType       { return TypeError }
func (Status) Type() MessageType      { return TypeStatus }
func (Response) Type() MessageType    { return TypeResponse }

func (StreamStart) isServerMessage() {}
func (StreamChunk) isServerMessage() {}
func (StreamEnd) isServerMessage()   {}
func (Error) isServerMessage()       {}
func (Status) isServerMessage()      {}
func (Response) isServerMessage()    {}
