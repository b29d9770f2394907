// filescope - indexed home search and live filesystem search.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jeranaias/filescope/internal/cli"
	"github.com/jeranaias/filescope/internal/config"
	"github.com/jeranaias/filescope/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := cli.Parse(os.Args[1:])

	// Commands that do not need a loaded configuration
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return exitCode(cmd, args, cli.HandleVersion(os.Stdout, args))
	case cli.CmdUnknown:
		err := cli.NewValidationErrorWithExample("command", args.Subcommand,
			"unknown command", "filescope help")
		return exitCode(cmd, args, err)
	case cli.CmdConfig:
		return exitCode(cmd, args, cli.HandleConfig(args))
	}

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		return exitCode(cmd, args, err)
	}

	// The watch screen owns the terminal; its log goes to a file.
	if cmd == cli.CmdWatch && cfg.Log.File == "" {
		if dir, err := config.ConfigDir(); err == nil {
			cfg.Log.File = filepath.Join(dir, "filescope.log")
		}
	}

	_, closeLog, err := logging.Setup(cfg.Log, os.Stderr)
	if err != nil {
		return exitCode(cmd, args, &cli.ConfigError{Err: err})
	}
	defer closeLog()
	slog.Debug("Starting", "command", cmd.String(), "version", Version)

	switch cmd {
	case cli.CmdWatch:
		err = cli.HandleWatch(ctx, cfg, args)
	case cli.CmdSearch:
		err = cli.HandleSearch(ctx, cfg, args)
	case cli.CmdIndex:
		err = cli.HandleIndex(ctx, cfg, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(cfg, args)
	default:
		err = fmt.Errorf("unhandled command %s", cmd)
	}
	return exitCode(cmd, args, err)
}

// exitCode displays err and maps it to the process exit code.
func exitCode(cmd cli.Command, args cli.Args, err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	w := os.Stderr
	if args.JSON {
		w = os.Stdout
	}
	cli.DisplayError(w, cmd.String(), err, args.JSON)
	return cli.GetExitCode(err)
}
