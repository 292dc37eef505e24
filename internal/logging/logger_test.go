// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerr "mdqa/cli/internal/errors"
)

func TestNewWritesMaskedFileLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")

	logger, closeFn, err := New(Options{File: path})
	require.NoError(t, err)
	logger.Debug("connecting", "address", "ws://u:secret@127.0.0.1:8765", "error", errors.New("token=abc"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "connecting")
	assert.Contains(t, out, "ws://*:*@127.0.0.1:8765")
	assert.Contains(t, out, "token=***")
	assert.NotContains(t, out, "secret")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewVerboseFansOut(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	path := filepath.Join(t.TempDir(), "client.log")
	var console bytes.Buffer

	logger, closeFn, err := New(Options{Verbose: true, Console: &console, File: path})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("exchange state", "to", "streaming")

	assert.Contains(t, console.String(), "exchange state")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exchange state")
}

func TestNewVerboseMasksConsole(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var console bytes.Buffer
	logger, closeFn, err := New(Options{Verbose: true, Console: &console})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("connected", "address", "ws://alice:s3cretpw@127.0.0.1:8765")
	logger.With("server", "ws://bob:hunter22@127.0.0.1:8765").Debug("dial with token=abcdef")
	logger.Debug("grouped", slog.Group("conn", slog.String("address", "ws://carol:pa55word@host:1")))

	out := console.String()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "token=***")
	for _, secret := range []string{"s3cretpw", "hunter22", "pa55word", "abcdef"} {
		assert.NotContains(t, out, secret)
	}
}

func TestNewQuietDiscards(t *testing.T) {
	logger, closeFn, err := New(Options{})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.False(t, logger.Enabled(context.Background(), 100))
}

func TestNewUnwritableFile(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "client.log")})
	assert.Error(t, err)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyQueryFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected QueryFailureType
	}{
		{"nil", nil, QueryFailureUnknown},
		{"deadline", qaerr.Wrap(qaerr.TransportFailed, "receive message", fmt.Errorf("%w: read tcp", context.DeadlineExceeded)), QueryFailureTimeout},
		{"cancelled", qaerr.Wrap(qaerr.TransportFailed, "receive message", context.Canceled), QueryFailureCanceled},
		{"decode", qaerr.Wrap(qaerr.DecodeFailed, "decode server message", errors.New("unknown type")), QueryFailureProtocol},
		{"net timeout", qaerr.Wrap(qaerr.TransportFailed, "send query", timeoutErr{}), QueryFailureTimeout},
		{"dropped", qaerr.Wrap(qaerr.TransportFailed, "receive message", errors.New("unexpected EOF")), QueryFailureDropped},
		{"other", errors.New("boom"), QueryFailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyQueryFailure(tt.err))
		})
	}
}

func TestFormatQueryFailure(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	dropped := FormatQueryFailure(qaerr.Wrap(qaerr.TransportFailed, "receive message", errors.New("unexpected EOF")))
	assert.Contains(t, dropped, "Connection Lost")
	assert.Contains(t, dropped, "md-qa server is running")
	assert.Contains(t, dropped, "Technical details: transport_failed: receive message: unexpected EOF")

	decode := FormatQueryFailure(qaerr.Wrap(qaerr.DecodeFailed, "decode server message", errors.New("x")))
	assert.Contains(t, decode, "Query Failed")
	assert.Contains(t, decode, "does not understand")

	timeout := FormatQueryFailure(qaerr.Wrap(qaerr.TransportFailed, "receive message", context.DeadlineExceeded))
	assert.Contains(t, timeout, "--timeout")
}
