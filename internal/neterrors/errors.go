// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package neterrors explains connect-time failures to the user.
package neterrors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"mdqa/cli/internal/logging"
)

const maxDetails = 200

// ServerHint is the command that starts a server to talk to.
const ServerHint = "md-qa server --directories /path/to/docs"

// Failure is the category of a connect error.
type Failure int

const (
	FailureUnknown Failure = iota
	FailureRefused
	FailureTimeout
	FailureDNS
	FailureNotWebSocket
	FailureTLS
	FailureBadAddress
)

func (f Failure) String() string {
	switch f {
	case FailureRefused:
		return "refused"
	case FailureTimeout:
		return "timeout"
	case FailureDNS:
		return "dns"
	case FailureNotWebSocket:
		return "not_websocket"
	case FailureTLS:
		return "tls"
	case FailureBadAddress:
		return "bad_address"
	default:
		return "unknown"
	}
}

// Classify detects the common reasons a WebSocket dial fails.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureUnknown
	case errors.Is(err, websocket.ErrBadHandshake):
		return FailureNotWebSocket
	case isTimeoutError(err):
		return FailureTimeout
	case isDNSError(err):
		return FailureDNS
	case isConnectionRefusedError(err):
		return FailureRefused
	case isTLSError(err):
		return FailureTLS
	case isAddressError(err):
		return FailureBadAddress
	}
	return FailureUnknown
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isTLSError checks if the error is a TLS or certificate error.
func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "tls:") || strings.Contains(lower, "x509:")
}

// isAddressError checks if the address could not be used at all.
func isAddressError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return strings.Contains(err.Error(), "malformed ws or wss URL")
}

// Present writes a user-friendly explanation of a connect failure to w.
// Credentials in address or err are masked.
func Present(w io.Writer, err error, address string) {
	if err == nil {
		return
	}
	host := ExtractHost(address)
	address = logging.Mask(address)

	switch Classify(err) {
	case FailureRefused:
		pterm.Fprintln(w, pterm.Sprintf("🚫 Connection refused by %s", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "No md-qa server is listening there. Start one with:")
		pterm.Fprintln(w, "  "+ServerHint)
		pterm.Fprintln(w)
		pterm.Fprintln(w, "or point the client at the right port with --server or server.port in the config.")

	case FailureTimeout:
		pterm.Fprintln(w, pterm.Sprintf("⏱️  Connection timeout while connecting to %s", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "The server did not complete the WebSocket handshake in time. This could mean:")
		pterm.Fprintln(w, "  • The server is still starting up")
		pterm.Fprintln(w, "  • A firewall is dropping the connection")

	case FailureDNS:
		pterm.Fprintln(w, pterm.Sprintf("🌐 Cannot resolve %s", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "Check the host name in --server.")

	case FailureNotWebSocket:
		pterm.Fprintln(w, pterm.Sprintf("⚠️  %s is not an md-qa WebSocket server", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "Something answered on that port but refused the WebSocket upgrade.")
		pterm.Fprintln(w, "Check that server.port points at the md-qa server and not another service.")

	case FailureTLS:
		pterm.Fprintln(w, pterm.Sprintf("🔒 Secure connection to %s failed", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "The local md-qa server speaks plain ws://; use wss:// only behind a TLS proxy")
		pterm.Fprintln(w, "with a certificate your system trusts.")

	case FailureBadAddress:
		pterm.Fprintln(w, pterm.Sprintf("❌ Invalid server address %q", address))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "Use a ws:// or wss:// URL, for example ws://127.0.0.1:8765.")

	default:
		pterm.Fprintln(w, pterm.Sprintf("❌ Cannot connect to %s", host))
		pterm.Fprintln(w)
		pterm.Fprintln(w, "Make sure the md-qa server is running:")
		pterm.Fprintln(w, "  "+ServerHint)
	}

	pterm.Fprintln(w)
	details := truncate(logging.Mask(err.Error()), maxDetails)
	pterm.Fprintln(w, pterm.Gray("Technical details: "+details))
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// ExtractHost extracts host:port from a URL for error messages.
func ExtractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
