// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for filescope.
//
// Configuration is a TOML file with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - IndexConfig: the persistent index over the home tree
//   - LiveConfig: on-demand regex scans of the root scope
//   - WatchConfig: change watcher debounce and buffering
//   - Duration: a time.Duration written as "2s" in TOML
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FILESCOPE_*)
//   - $FILESCOPE_CONFIG or ~/.filescope/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	debounce := cfg.Watch.Debounce.Duration
package config
