// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides utilities for secure logging and error presentation.
// It builds the CLI's slog logger, masks secrets such as the API key before they
// reach a log line or the terminal, and formats query failures for display.
package logging

import (
	"regexp"
)

var (
	reYAMLKey = regexp.MustCompile(`(?im)^(\s*api_key:[ \t]*)(\S[^\r\n]*)$`)
	reAPIKey  = regexp.MustCompile(`(?i)(apikey=|api_key=|api-key:\s*)([^\s;&]+)`)
	reToken   = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reURLUser = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@/\s]+)(@)`) // ws://user:pass@host
)

// Mask replaces sensitive values in the input string with "*".
// For URLs with credentials, both username and password are masked.
func Mask(s string) string {
	out := s
	out = reYAMLKey.ReplaceAllString(out, "${1}***")
	out = reAPIKey.ReplaceAllString(out, "${1}***")
	out = reToken.ReplaceAllString(out, "${1}***")
	out = reURLUser.ReplaceAllString(out, "$1*:*$4")
	return out
}

// MaskSecret hides a secret value while keeping a short prefix so users can
// tell which key is configured.
func MaskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "***"
	default:
		return secret[:3] + "***"
	}
}
