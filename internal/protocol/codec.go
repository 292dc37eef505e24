// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

type queryWire struct {
	Type     MessageType `json:"type"`
	Question string      `json:"question"`
	Index    string      `json:"index,omitempty"`
}

// EncodeQuery produces the wire form of a query.
func EncodeQuery(q QueryMessage) ([]byte, error) {
	return json.Marshal(queryWire{Type: TypeQuery, Question: q.Question, Index: q.Index})
}

// DecodeQuery parses and validates a query payload the way a server would:
// the type must be "query" and the question a non-blank string.
func DecodeQuery(data []byte) (QueryMessage, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return QueryMessage{}, err
	}
	typ, err := messageType(fields)
	if err != nil {
		return QueryMessage{}, err
	}
	if typ != TypeQuery {
		return QueryMessage{}, fmt.Errorf("%w: expected %q, got %q", ErrUnknownType, TypeQuery, typ)
	}
	question, err := requireString(fields, typ, "question")
	if err != nil {
		return QueryMessage{}, err
	}
	if strings.TrimSpace(question) == "" {
		return QueryMessage{}, fieldError(typ, "question", "cannot be empty")
	}
	index, err := optionalString(fields, typ, "index")
	if err != nil {
		return QueryMessage{}, err
	}
	return QueryMessage{Question: question, Index: index}, nil
}

// DecodeServerMessage parses one inbound text frame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	typ, err := messageType(fields)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeStreamStart:
		return StreamStart{}, nil
	case TypeStreamChunk:
		chunk, err := requireString(fields, typ, "chunk")
		if err != nil {
			return nil, err
		}
		return StreamChunk{Chunk: chunk}, nil
	case TypeStreamEnd:
		sources, err := requireStringList(fields, typ, "sources")
		if err != nil {
			return nil, err
		}
		return StreamEnd{Sources: sources}, nil
	case TypeError:
		msg, err := requireString(fields, typ, "message")
		if err != nil {
			return nil, err
		}
		return Error{Message: msg}, nil
	case TypeStatus:
		status, err := requireString(fields, typ, "status")
		if err != nil {
			return nil, err
		}
		msg, err := optionalString(fields, typ, "message")
		if err != nil {
			return nil, err
		}
		return Status{Status: status, Message: msg}, nil
	case TypeResponse:
		answer, err := requireString(fields, typ, "answer")
		if err != nil {
			return nil, err
		}
		sources, err := requireList(fields, typ, "sources")
		if err != nil {
			return nil, err
		}
		return Response{Answer: answer, Sources: sources}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// EncodeServerMessage produces the wire form of a server message.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case StreamStart:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{TypeStreamStart})
	case StreamChunk:
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Chunk string      `json:"chunk"`
		}{TypeStreamChunk, m.Chunk})
	case StreamEnd:
		sources := m.Sources
		if sources == nil {
			sources = []string{}
		}
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Sources []string    `json:"sources"`
		}{TypeStreamEnd, sources})
	case Error:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Message string      `json:"message"`
		}{TypeError, m.Message})
	case Status:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Status  string      `json:"status"`
			Message string      `json:"message,omitempty"`
		}{TypeStatus, m.Status, m.Message})
	case Response:
		sources := m.Sources
		if sources == nil {
			sources = []json.RawMessage{}
		}
		return json.Marshal(struct {
			Type    MessageType       `json:"type"`
			Answer  string            `json:"answer"`
			Sources []json.RawMessage `json:"sources"`
		}{TypeResponse, m.Answer, sources})
	default:
		return nil, fmt.Errorf("unsupported server message %T", msg)
	}
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	// encoding/json would replace invalid bytes with U+FFFD.
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}
	return fields, nil
}

func messageType(fields map[string]json.RawMessage) (MessageType, error) {
	raw, ok := fields["type"]
	if !ok || isNull(raw) {
		return "", ErrMissingType
	}
	var typ string
	if err := json.Unmarshal(raw, &typ); err != nil {
		return "", fmt.Errorf("%w: type must be a string", ErrMissingType)
	}
	return MessageType(typ), nil
}

func requireString(fields map[string]json.RawMessage, typ MessageType, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", fieldError(typ, name, "missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fieldError(typ, name, "must be a string")
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, typ MessageType, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fieldError(typ, name, "must be a string")
	}
	return s, nil
}

func requireList(fields map[string]json.RawMessage, typ MessageType, name string) ([]json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return nil, fieldError(typ, name, "missing")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fieldError(typ, name, "must be a list")
	}
	return items, nil
}

func requireStringList(fields map[string]json.RawMessage, typ MessageType, name string) ([]string, error) {
	items, err := requireList(fields, typ, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if isNull(item) || json.Unmarshal(item, &s) != nil {
			return nil, fieldError(typ, fmt.Sprintf("%s[%d]", name, i), "must be a string")
		}
		out = append(out, s)
	}
	return out, nil
}

func fieldError(typ MessageType, name, problem string) error {
	return fmt.Errorf("%s: %w %q: %s", typ, ErrField, name, problem)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
