// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"errors"

	qaerr "mdqa/cli/internal/errors"
)

var kindLabels = map[qaerr.Kind]string{
	qaerr.ConnectionFailed: "cannot reach the md-qa server",
	qaerr.TransportFailed:  "connection to the md-qa server failed",
	qaerr.DecodeFailed:     "unexpected message from the md-qa server",
	qaerr.ConfigFailed:     "configuration problem",
}

// PresentError formats an error for user display with masking. Errors that
// carry a kind are introduced by a readable label instead of the kind code.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}

	detail := err.Error()
	var e *qaerr.E
	if errors.As(err, &e) && e.Error() == detail {
		detail = e.Message
		if e.Err != nil {
			detail += ": " + e.Err.Error()
		}
	}

	msg := Mask(detail)
	if label, ok := kindLabels[qaerr.KindOf(err)]; ok {
		msg = label + ": " + msg
	}
	if context != "" {
		msg = context + ": " + msg
	}
	return msg
}
