// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores the md-qa YAML configuration shared by the
// server and its clients (~/.md-qa/config.yaml by default).
// The client only reads server.port and server.index_name; the other keys are
// kept intact so that editing the file from the CLI never drops server settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	qaerr "mdqa/cli/internal/errors"
)

const (
	// EnvPath names the environment variable that selects a config file.
	EnvPath = "MD_QA_CONFIG"

	DefaultPort           = 8765
	DefaultReloadInterval = 300
	DefaultIndexName      = "default"
)

// Config mirrors the YAML schema (api.*, server.*).
type Config struct {
	API    APISection    `yaml:"api"`
	Server ServerSection `yaml:"server"`
}

// APISection holds the LLM/embedding provider settings used by the server.
type APISection struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	APIKey         string `yaml:"api_key,omitempty"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	LLMModel       string `yaml:"llm_model,omitempty"`
}

// ServerSection holds the server settings. Directories is always written.
type ServerSection struct {
	Port           int      `yaml:"port,omitempty"`
	Directories    []string `yaml:"directories"`
	ReloadInterval int      `yaml:"reload_interval,omitempty"`
	IndexName      string   `yaml:"index_name,omitempty"`
}

// UnmarshalYAML accepts directories either as a list or, like the server, as
// one comma separated string.
func (s *ServerSection) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Port           int     `yaml:"port"`
		Directories    dirList `yaml:"directories"`
		ReloadInterval int     `yaml:"reload_interval"`
		IndexName      string  `yaml:"index_name"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = ServerSection{
		Port:           raw.Port,
		Directories:    []string(raw.Directories),
		ReloadInterval: raw.ReloadInterval,
		IndexName:      raw.IndexName,
	}
	return nil
}

type dirList []string

func (d *dirList) UnmarshalYAML(value *yaml.Node) error {
	switch {
	case value.Kind == yaml.SequenceNode:
		var dirs []string
		if err := value.Decode(&dirs); err != nil {
			return err
		}
		*d = dirs
	case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null":
		*d = nil
	case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!str":
		*d = SplitDirectories(value.Value)
	default:
		return fmt.Errorf("line %d: server.directories must be a list or a comma separated string", value.Line)
	}
	return nil
}

// SplitDirectories splits a comma separated list, dropping blank entries.
func SplitDirectories(s string) []string {
	dirs := []string{}
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Defaults returns the values written by `md-qa config init`.
func Defaults() Config {
	return Config{
		Server: ServerSection{
			Port:           DefaultPort,
			Directories:    []string{},
			ReloadInterval: DefaultReloadInterval,
			IndexName:      DefaultIndexName,
		},
	}
}

// Port returns server.port, or DefaultPort when unset.
func (c Config) Port() int {
	if c.Server.Port == 0 {
		return DefaultPort
	}
	return c.Server.Port
}

// ServerURL returns the WebSocket URL of the local server.
func (c Config) ServerURL() string {
	return "ws://127.0.0.1:" + strconv.Itoa(c.Port())
}

// DefaultPath returns ~/.md-qa/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".md-qa", "config.yaml"), nil
}

// Load reads and parses the config file at path. An empty file yields the
// zero Config.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, qaerr.Wrap(qaerr.ConfigFailed, "read "+path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, qaerr.Wrap(qaerr.ConfigFailed, "parse "+path, err)
	}
	if err := c.Validate(); err != nil {
		return c, qaerr.Wrap(qaerr.ConfigFailed, "validate "+path, err)
	}
	return c, nil
}

// Validate checks value ranges that YAML typing alone does not enforce.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.ReloadInterval < 0 {
		return fmt.Errorf("server.reload_interval must not be negative, got %d", c.Server.ReloadInterval)
	}
	return nil
}

// Save writes the config with 0600 permissions, creating the parent directory
// (0700) when missing. The file is replaced atomically.
func Save(path string, c Config) error {
	if c.Server.Directories == nil {
		c.Server.Directories = []string{}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return qaerr.Wrap(qaerr.ConfigFailed, "encode config", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir, holds the API key
		return qaerr.Wrap(qaerr.ConfigFailed, "create "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return qaerr.Wrap(qaerr.ConfigFailed, "write "+path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return qaerr.Wrap(qaerr.ConfigFailed, "write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return qaerr.Wrap(qaerr.ConfigFailed, "write "+path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return qaerr.Wrap(qaerr.ConfigFailed, "write "+path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return qaerr.Wrap(qaerr.ConfigFailed, "write "+path, err)
	}
	return nil
}

// Source tells where a resolved configuration came from.
type Source int

const (
	SourceBuiltin Source = iota
	SourceFlag
	SourceEnv
	SourceDefaultFile
)

func (s Source) String() string {
	switch s {
	case SourceFlag:
		return "--config flag"
	case SourceEnv:
		return EnvPath
	case SourceDefaultFile:
		return "default path"
	default:
		return "built-in defaults"
	}
}

// Resolved is a loaded configuration and its origin. Path is empty for
// SourceBuiltin.
type Resolved struct {
	Config Config
	Path   string
	Source Source
}

// Resolve applies the lookup order: flagPath, then envPath, then defaultPath
// if that file exists, then built-in defaults. An explicit path (flag or env)
// that cannot be loaded is an error naming the path.
func Resolve(flagPath, envPath, defaultPath string) (Resolved, error) {
	switch {
	case flagPath != "":
		return load(flagPath, SourceFlag)
	case envPath != "":
		return load(envPath, SourceEnv)
	case defaultPath != "":
		_, err := os.Stat(defaultPath)
		if err == nil {
			return load(defaultPath, SourceDefaultFile)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Resolved{}, qaerr.Wrap(qaerr.ConfigFailed, "stat "+defaultPath, err)
		}
	}
	return Resolved{Source: SourceBuiltin}, nil
}

func load(path string, source Source) (Resolved, error) {
	c, err := Load(path)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Config: c, Path: path, Source: source}, nil
}

// Locate returns the file that config-editing commands operate on. It follows
// the precedence of Resolve but does not require the file to exist.
func Locate(flagPath, envPath, defaultPath string) (string, Source) {
	switch {
	case flagPath != "":
		return flagPath, SourceFlag
	case envPath != "":
		return envPath, SourceEnv
	default:
		return defaultPath, SourceDefaultFile
	}
}
