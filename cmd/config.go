// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"mdqa/cli/internal/config"
	"mdqa/cli/internal/logging"
	"mdqa/cli/internal/terminal"
)

var forceInit bool

// configCmd groups the commands that inspect and edit the shared config file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the md-qa config file",
	Long: `The config commands operate on the file selected by --config, MD_QA_CONFIG or
~/.md-qa/config.yaml, in that order. The same file is read by the md-qa server,
so api.* and server.directories set here configure the server too.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path in use",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, source, err := locateConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		logger.Debug("config path", "path", path, "source", source.String())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		return showConfig(cmd.OutOrStdout(), s)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, err := locateConfig()
		if err != nil {
			return err
		}
		return initConfig(cmd.OutOrStdout(), path, forceInit)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY [VALUE]",
	Short: "Set one configuration key",
	Long: `Set one configuration key and save the file. Keys:

  ` + strings.Join(config.Keys(), "\n  ") + `

server.directories takes a comma separated list. When api.api_key is given
without a VALUE it is prompted for, so the key stays out of shell history.`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, err := locateConfig()
		if err != nil {
			return err
		}

		key := args[0]
		var value string
		switch {
		case len(args) == 2:
			value = args[1]
		case key == "api.api_key":
			value, err = promptSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter API key: ")
			if err != nil {
				return err
			}
		default:
			return &usageError{err: fmt.Errorf("missing VALUE for %s", key), usage: cmd.UsageString()}
		}
		return setConfig(cmd.OutOrStdout(), path, key, value)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func locateConfig() (string, config.Source, error) {
	defaultPath, err := config.DefaultPath()
	if err != nil && configPath == "" && os.Getenv(config.EnvPath) == "" {
		return "", config.SourceBuiltin, fmt.Errorf("cannot find home directory: %w", err)
	}
	path, source := config.Locate(configPath, os.Getenv(config.EnvPath), defaultPath)
	return path, source, nil
}

func showConfig(w io.Writer, s *settings) error {
	c := s.resolved.Config
	c.API.APIKey = logging.MaskSecret(c.API.APIKey)
	if c.Server.Directories == nil {
		c.Server.Directories = []string{}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if s.resolved.Path == "" {
		pterm.Fprintln(w, pterm.Gray("# "+s.resolved.Source.String()+" (no config file)"))
	} else {
		pterm.Fprintln(w, pterm.Gray("# "+s.resolved.Path))
	}
	fmt.Fprint(w, string(b))
	pterm.Fprintln(w, pterm.Gray("# server url: "+s.serverURL))
	return nil
}

func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, config.Defaults()); err != nil {
		return err
	}
	pterm.Fprintln(w, "✅ Wrote default config to "+path)
	pterm.Fprintln(w, "   Next: md-qa config set server.directories /path/to/docs")
	return nil
}

// setConfig updates one key in the file at path, starting from defaults when
// the file does not exist yet.
func setConfig(w io.Writer, path, key, value string) error {
	c := config.Defaults()
	if _, err := os.Stat(path); err == nil {
		if c, err = config.Load(path); err != nil {
			return err
		}
	}
	if err := c.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(path, c); err != nil {
		return err
	}

	shown := value
	if key == "api.api_key" {
		shown = logging.MaskSecret(value)
	}
	pterm.Fprintln(w, fmt.Sprintf("✅ %s = %s", key, shown))
	logger.Debug("config updated", "path", path, "key", key)
	return nil
}

// promptSecret reads a secret without echo when stdin is a terminal, then
// clears the prompt line.
func promptSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && terminal.IsInteractive(f) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		terminal.ClearPreviousLines(out, len(prompt))
		if err != nil {
			return "", fmt.Errorf("read API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", errors.New("API key is required")
	}
	return value, nil
}
