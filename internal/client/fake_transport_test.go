// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"errors"
	"sync"

	"mdqa/cli/internal/protocol"
)

var errInterrupted = errors.New("fake transport interrupted")

// fakeTransport answers each written query with the frames produced by reply.
// A query with no reply frames leaves ReadFrame blocked until Interrupt or Close.
type fakeTransport struct {
	mu         sync.Mutex
	pending    []Frame
	busy       bool
	overlapped bool
	questions  []string

	reply   func(protocol.QueryMessage) []Frame
	written chan string

	stopOnce sync.Once
	stopped  chan struct{}
	closed   bool
}

func newFakeTransport(reply func(protocol.QueryMessage) []Frame) *fakeTransport {
	return &fakeTransport{
		reply:   reply,
		written: make(chan string, 64),
		stopped: make(chan struct{}),
	}
}

func textFrames(payloads ...string) []Frame {
	frames := make([]Frame, 0, len(payloads))
	for _, p := range payloads {
		frames = append(frames, Frame{Kind: FrameText, Data: []byte(p)})
	}
	return frames
}

func (f *fakeTransport) WriteText(data []byte) error {
	q, err := protocol.DecodeQuery(data)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.busy {
		f.overlapped = true
	}
	f.busy = true
	f.questions = append(f.questions, q.Question)
	f.pending = append(f.pending, f.reply(q)...)
	f.mu.Unlock()

	f.written <- q.Question
	return nil
}

func (f *fakeTransport) ReadFrame() (Frame, error) {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		<-f.stopped
		return Frame{}, errInterrupted
	}
	frame := f.pending[0]
	f.pending = f.pending[1:]
	if len(f.pending) == 0 {
		f.busy = false
	}
	f.mu.Unlock()
	return frame, nil
}

func (f *fakeTransport) Interrupt() {
	f.stopOnce.Do(func() { close(f.stopped) })
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.Interrupt()
	return nil
}

func (f *fakeTransport) snapshot() (questions []string, overlapped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.questions...), f.overlapped
}
