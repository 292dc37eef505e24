// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg resolves XDG Base Directory paths for md-qa.
//
// The configuration file lives at ~/.md-qa/config.yaml because the server and
// the desktop app read it from there; only per-user state such as the client
// log follows the XDG layout.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "md-qa"

// StateDir returns the XDG state directory for md-qa.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/md-qa when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// LogFile returns the path of the client log inside StateDir.
func LogFile() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "client.log"), nil
}
