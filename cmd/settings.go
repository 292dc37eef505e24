// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"mdqa/cli/internal/config"
)

// settings is everything a question needs, resolved from flags and config.
type settings struct {
	resolved  config.Resolved
	serverURL string
	index     string
	timeout   time.Duration
	logger    *slog.Logger

	// flag overrides win over every config reload
	flagURL   string
	flagIndex string
}

// flagValues are the persistent flags that influence settings.
type flagValues struct {
	configPath string
	serverURL  string
	index      string
	timeout    time.Duration
}

func currentFlags() flagValues {
	return flagValues{
		configPath: configPath,
		serverURL:  serverURL,
		index:      indexName,
		timeout:    queryTimeout,
	}
}

// loadSettings resolves settings for the running process.
func loadSettings() (*settings, error) {
	defaultPath, err := config.DefaultPath()
	if err != nil {
		defaultPath = ""
	}
	return resolveSettings(currentFlags(), os.Getenv(config.EnvPath), defaultPath, logger)
}

func resolveSettings(f flagValues, envPath, defaultPath string, logger *slog.Logger) (*settings, error) {
	resolved, err := config.Resolve(f.configPath, envPath, defaultPath)
	if err != nil {
		path, _ := config.Locate(f.configPath, envPath, defaultPath)
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if f.timeout < 0 {
		return nil, &usageError{err: fmt.Errorf("--timeout must not be negative, got %s", f.timeout)}
	}

	s := &settings{
		resolved:  resolved,
		timeout:   f.timeout,
		logger:    logger,
		flagURL:   f.serverURL,
		flagIndex: f.index,
	}
	s.apply(resolved.Config)

	logger.Debug("settings resolved",
		"config_source", resolved.Source.String(),
		"config_path", resolved.Path,
		"server", s.serverURL,
		"index", s.index,
	)
	return s, nil
}

// apply takes server and index from c unless a flag pinned them. It reports
// whether the server URL changed.
func (s *settings) apply(c config.Config) bool {
	previous := s.serverURL
	s.serverURL = c.ServerURL()
	if s.flagURL != "" {
		s.serverURL = s.flagURL
	}
	s.index = c.Server.IndexName
	if s.flagIndex != "" {
		s.index = s.flagIndex
	}
	s.resolved.Config = c
	return previous != "" && previous != s.serverURL
}
