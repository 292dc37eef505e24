// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type setter func(c *Config, value string) error

var setters = map[string]setter{
	"api.base_url":        func(c *Config, v string) error { c.API.BaseURL = v; return nil },
	"api.api_key":         func(c *Config, v string) error { c.API.APIKey = v; return nil },
	"api.embedding_model": func(c *Config, v string) error { c.API.EmbeddingModel = v; return nil },
	"api.llm_model":       func(c *Config, v string) error { c.API.LLMModel = v; return nil },
	"server.index_name":   func(c *Config, v string) error { c.Server.IndexName = v; return nil },
	"server.port": func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("server.port must be an integer between 1 and 65535, got %q", v)
		}
		c.Server.Port = port
		return nil
	},
	"server.reload_interval": func(c *Config, v string) error {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return fmt.Errorf("server.reload_interval must be a non-negative number of seconds, got %q", v)
		}
		c.Server.ReloadInterval = secs
		return nil
	},
	"server.directories": func(c *Config, v string) error {
		c.Server.Directories = SplitDirectories(v)
		return nil
	},
}

// Keys lists the dotted keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to the dotted key. server.directories takes a comma
// separated list; an empty value clears it.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(c, strings.TrimSpace(value))
}
