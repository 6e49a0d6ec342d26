// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/config"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
		Long: `Show and edit the configuration.

Settings are read from ~/.mucgpt/config.toml (or --config) and can be
overridden with MUCGPT_* environment variables. Keys use dot notation,
for example chat.model or backend.base_url.`,
	}
	cmd.AddCommand(
		a.configShowCommand(),
		a.configPathCommand(),
		a.configInitCommand(),
		a.configGetCommand(),
		a.configSetCommand(),
	)
	return cmd
}

// configPath returns the file config commands operate on.
func (a *App) configPath() (string, error) {
	if a.opts.ConfigPath != "" {
		return a.opts.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *App) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.Config().Clone()
			if cfg.Backend.APIKey != "" {
				cfg.Backend.APIKey = "[REDACTED]"
			}
			if a.opts.JSON {
				return a.printJSON("config show", cfg)
			}
			for _, key := range config.GetAllKeys() {
				val, err := cfg.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%-28s %v\n", key, formatValue(val))
			}
			return nil
		},
	}
}

func (a *App) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			if a.opts.JSON {
				return a.printJSON("config path", map[string]string{"path": path})
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
}

func (a *App) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with default values",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := saveConfig(config.Default(), path); err != nil {
				return err
			}
			return a.done("config init", map[string]string{"path": path}, "Wrote "+path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *App) configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := a.Config().Get(args[0])
			if err != nil {
				return err
			}
			if args[0] == "backend.api_key" && val != "" {
				val = "[REDACTED]"
			}
			if a.opts.JSON {
				return a.printJSON("config get", map[string]any{"key": args[0], "value": val})
			}
			fmt.Fprintln(a.out, formatValue(val))
			return nil
		},
	}
}

func (a *App) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one configuration value in the config file",
		Long: `Change one value in the configuration file. Environment overrides are
not written back. List values (chat.enabled_tools) are comma separated.`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			cfg, err := readConfigFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(cfg, path); err != nil {
				return err
			}
			return a.done("config set", map[string]string{"key": args[0], "path": path},
				fmt.Sprintf("Set %s in %s", args[0], path))
		},
	}
}

// readConfigFile loads path without environment overrides, or the
// defaults when it does not exist yet.
func readConfigFile(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	cfg := &config.Config{}
	if strings.HasSuffix(path, ".json") {
		return cfg, config.LoadJSON(cfg, path)
	}
	return cfg, config.LoadTOML(cfg, path)
}

func saveConfig(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func formatValue(v any) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}
