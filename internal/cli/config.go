// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdesk/internal/config"
)

func newConfigCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration file",
		Long: `Show and edit the configuration file.

Keys use dot notation, for example backend.url or stream.token_interval_ms.
Environment variables (RAGDESK_*) override the file at run time.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := r.loadConfig()
				if err != nil {
					return r.fail("config show", err)
				}
				if r.opts.jsonOut {
					return NewJSONResponse("config show", cfg).Write(r.deps.Out)
				}
				for _, key := range config.Keys() {
					v, _ := cfg.Get(key)
					fmt.Fprintln(r.deps.Out, field(key, formatValue(v)))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := r.loadConfig()
				if err != nil {
					return r.fail("config get", err)
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return r.fail("config get", err)
				}
				if r.opts.jsonOut {
					return NewJSONResponse("config get", map[string]any{"key": args[0], "value": v}).Write(r.deps.Out)
				}
				fmt.Fprintln(r.deps.Out, formatValue(v))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the configuration file",
			Example: `  ragdesk config set backend.url http://rag.internal:8000
  ragdesk config set documents.include "**/*.pdf,**/*.md"`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.runConfigSet(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := r.configFile()
				if err != nil {
					return r.fail("config path", err)
				}
				fmt.Fprintln(r.deps.Out, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.runConfigInit()
			},
		},
	)
	return cmd
}

// configFile is the file config set and init write to.
func (r *runner) configFile() (string, error) {
	if r.opts.configPath != "" {
		return r.opts.configPath, nil
	}
	return config.ConfigPathTOML()
}

// runConfigSet edits the file alone so environment overrides are not baked
// into it.
func (r *runner) runConfigSet(key, value string) error {
	path, err := r.configFile()
	if err != nil {
		return r.fail("config set", err)
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return r.fail("config set", err)
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return r.fail("config set", err)
	}
	if err := cfg.Validate(); err != nil {
		return r.fail("config set", err)
	}
	if err := saveConfig(cfg, path); err != nil {
		return r.fail("config set", err)
	}

	v, _ := cfg.Get(key)
	if r.opts.jsonOut {
		return NewJSONResponse("config set", map[string]any{"key": key, "value": v, "path": path}).Write(r.deps.Out)
	}
	fmt.Fprintln(r.deps.Out, SuccessStyle.Render(fmt.Sprintf("%s = %s", key, formatValue(v))))
	return nil
}

func (r *runner) runConfigInit() error {
	path, err := r.configFile()
	if err != nil {
		return r.fail("config init", err)
	}
	if _, err := os.Stat(path); err == nil {
		return r.fail("config init", fmt.Errorf("%s already exists", path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return r.fail("config init", err)
	}
	if err := saveConfig(config.Default(), path); err != nil {
		return r.fail("config init", err)
	}
	if r.opts.jsonOut {
		return NewJSONResponse("config init", map[string]string{"path": path}).Write(r.deps.Out)
	}
	fmt.Fprintln(r.deps.Out, SuccessStyle.Render("Wrote "+path))
	return nil
}

func saveConfig(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func formatValue(v any) string {
	if items, ok := v.([]string); ok {
		return strings.Join(items, ",")
	}
	return fmt.Sprint(v)
}
