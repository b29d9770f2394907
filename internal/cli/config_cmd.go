// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration loading and the config command.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/filescope/internal/config"
)

// resolveConfigPath returns --config when given, else the default path.
func resolveConfigPath(args Args) string {
	if args.ConfigPath != "" {
		return args.ConfigPath
	}
	path, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return path
}

// LoadConfig loads the configuration named by --config, FILESCOPE_CONFIG
// or the default path, and applies -v and -q to the log level.
func LoadConfig(args Args) (*config.Config, error) {
	path := resolveConfigPath(args)
	if path == "" {
		return nil, &ConfigError{Err: errors.New("cannot determine config path")}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	switch {
	case args.Verbose:
		cfg.Log.Level = "debug"
	case args.Quiet:
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// HandleConfig handles the "config" command.
//
//	show   print the effective configuration as TOML
//	path   print the config file location
//	init   write the defaults (--force overwrites)
//	get    print one value by dotted key
//	keys   list the dotted keys
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "show", "":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", cfg).Write(stdout)
		}
		fmt.Fprint(stdout, cfg.String())
		return nil

	case "path":
		path := resolveConfigPath(args)
		if args.JSON {
			return NewJSONResponse("config", ConfigData{Key: "path", Value: path}).Write(stdout)
		}
		fmt.Fprintln(stdout, path)
		return nil

	case "init":
		return configInit(args)

	case "get":
		if args.ConfigKey == "" {
			return ErrMissingArgument("key", "filescope config get index.root")
		}
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		value, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return NewNotFoundError("config key", args.ConfigKey)
		}
		if args.JSON {
			return NewJSONResponse("config", ConfigData{Key: args.ConfigKey, Value: value}).Write(stdout)
		}
		if list, ok := value.([]string); ok {
			fmt.Fprintln(stdout, strings.Join(list, "\n"))
			return nil
		}
		fmt.Fprintln(stdout, value)
		return nil

	case "keys":
		keys := config.Keys()
		if args.JSON {
			return NewJSONResponse("config", keys).Write(stdout)
		}
		fmt.Fprintln(stdout, strings.Join(keys, "\n"))
		return nil
	}

	return NewValidationErrorWithExample("subcommand", args.Subcommand,
		"unknown config subcommand", "filescope config [show|path|init|get|keys]")
}

// configInit writes the default configuration. An existing file is kept
// unless --force is given.
func configInit(args Args) error {
	path := resolveConfigPath(args)
	if path == "" {
		return &ConfigError{Err: errors.New("cannot determine config path")}
	}
	if _, err := os.Stat(path); err == nil && !args.Force {
		return NewValidationErrorWithExample("config", path,
			"file already exists", "filescope config init --force")
	}
	if err := config.Save(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if args.JSON {
		return NewJSONResponse("config", ConfigData{Key: "path", Value: path}).Write(stdout)
	}
	fmt.Fprintf(stdout, "%s Wrote default configuration to %s\n", RenderStatus("ok"), path)
	return nil
}
