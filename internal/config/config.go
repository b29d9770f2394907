// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/filescope/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete filescope configuration.
type Config struct {
	// Persistent index over the home tree
	Index IndexConfig `toml:"index" json:"index"`

	// Live regex scans of the root scope
	Live LiveConfig `toml:"live" json:"live"`

	// File system watching
	Watch WatchConfig `toml:"watch" json:"watch"`

	// Background work
	Engine EngineConfig `toml:"engine" json:"engine"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`
}

// IndexConfig configures the persistent index (the home scope).
type IndexConfig struct {
	Root          string   `toml:"root" json:"root"`
	Dir           string   `toml:"dir" json:"dir"`
	MaxFileSize   int64    `toml:"max_file_size" json:"max_file_size"`
	MaxHits       int      `toml:"max_hits" json:"max_hits"`
	ProgressEvery int      `toml:"progress_every" json:"progress_every"`
	Exclude       []string `toml:"exclude" json:"exclude"`
}

// LiveConfig configures on-demand scans (the root scope).
type LiveConfig struct {
	Root        string `toml:"root" json:"root"`
	MaxDepth    int    `toml:"max_depth" json:"max_depth"`
	MaxResults  int    `toml:"max_results" json:"max_results"`
	MaxFileSize int64  `toml:"max_file_size" json:"max_file_size"` // 0 = no limit
}

// WatchConfig configures the change watcher.
type WatchConfig struct {
	Enabled  bool     `toml:"enabled" json:"enabled"`
	Debounce Duration `toml:"debounce" json:"debounce"`
	Buffer   int      `toml:"buffer" json:"buffer"`
}

// EngineConfig configures the search worker pool. Index writes run on their
// own single worker.
type EngineConfig struct {
	Workers int `toml:"workers" json:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" json:"format"` // text, json
	File   string `toml:"file" json:"file"`     // empty = stderr
	Debug  bool   `toml:"debug" json:"debug"`   // per-file search diagnostics
}

// Duration is a time.Duration written as a string ("2s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values. Paths keep their
// leading "~" until ExpandPaths runs.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Root:          "~/Documents",
			Dir:           "~/.filescope/index",
			MaxFileSize:   10 * 1024 * 1024, // 10MB
			MaxHits:       50,
			ProgressEvery: 100,
			Exclude:       []string{},
		},
		Live: LiveConfig{
			Root:       "/",
			MaxDepth:   10,
			MaxResults: 100,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: Duration{2 * time.Second},
			Buffer:   100,
		},
		Engine: EngineConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the filescope configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".filescope"), nil
}

// ConfigPath returns the config file path: $FILESCOPE_CONFIG when set,
// otherwise ~/.filescope/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("FILESCOPE_CONFIG"); p != "" {
		return ExpandHome(p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ConfigPath. A missing file yields the
// defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys the decoder does not know are
// logged and ignored.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("Unknown config key", "key", key.String(), "file", path)
	}
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Index.Root == "" {
		c.Index.Root = d.Index.Root
	}
	if c.Index.Dir == "" {
		c.Index.Dir = d.Index.Dir
	}
	if c.Index.MaxFileSize == 0 {
		c.Index.MaxFileSize = d.Index.MaxFileSize
	}
	if c.Index.MaxHits == 0 {
		c.Index.MaxHits = d.Index.MaxHits
	}
	if c.Index.ProgressEvery == 0 {
		c.Index.ProgressEvery = d.Index.ProgressEvery
	}

	if c.Live.Root == "" {
		c.Live.Root = d.Live.Root
	}
	if c.Live.MaxDepth == 0 {
		c.Live.MaxDepth = d.Live.MaxDepth
	}
	if c.Live.MaxResults == 0 {
		c.Live.MaxResults = d.Live.MaxResults
	}

	if c.Watch.Debounce.Duration == 0 {
		c.Watch.Debounce = d.Watch.Debounce
	}
	if c.Watch.Buffer == 0 {
		c.Watch.Buffer = d.Watch.Buffer
	}

	if c.Engine.Workers == 0 {
		c.Engine.Workers = d.Engine.Workers
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// ExpandPaths expands "~" in every path setting and makes them absolute.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Index.Root, &c.Index.Dir, &c.Live.Root, &c.Log.File} {
		if *p == "" {
			continue
		}
		expanded, err := ExpandHome(*p)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration as TOML to path, atomically.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# filescope configuration file\n")
	buf.WriteString("# Generated by filescope - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0o644, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Index.Root == "" {
		add("index.root", "must not be empty")
	}
	if c.Index.Dir == "" {
		add("index.dir", "must not be empty")
	}
	if c.Index.MaxFileSize <= 0 {
		add("index.max_file_size", "must be positive, got %d", c.Index.MaxFileSize)
	}
	if c.Index.MaxHits <= 0 {
		add("index.max_hits", "must be positive, got %d", c.Index.MaxHits)
	}
	if c.Index.ProgressEvery <= 0 {
		add("index.progress_every", "must be positive, got %d", c.Index.ProgressEvery)
	}
	for _, pattern := range c.Index.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			add("index.exclude", "invalid pattern %q", pattern)
		}
	}

	if c.Live.Root == "" {
		add("live.root", "must not be empty")
	}
	if c.Live.MaxDepth <= 0 {
		add("live.max_depth", "must be positive, got %d", c.Live.MaxDepth)
	}
	if c.Live.MaxResults <= 0 {
		add("live.max_results", "must be positive, got %d", c.Live.MaxResults)
	}
	if c.Live.MaxFileSize < 0 {
		add("live.max_file_size", "must not be negative, got %d", c.Live.MaxFileSize)
	}

	if c.Watch.Debounce.Duration <= 0 {
		add("watch.debounce", "must be positive, got %s", c.Watch.Debounce.Duration)
	}
	if c.Watch.Buffer <= 0 {
		add("watch.buffer", "must be positive, got %d", c.Watch.Buffer)
	}

	if c.Engine.Workers < 1 || c.Engine.Workers > 256 {
		add("engine.workers", "must be between 1 and 256, got %d", c.Engine.Workers)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FILESCOPE_HOME_ROOT: overrides index.root
//   - FILESCOPE_INDEX_DIR: overrides index.dir
//   - FILESCOPE_LIVE_ROOT: overrides live.root
//   - FILESCOPE_LOG_LEVEL: overrides log.level
//   - FILESCOPE_WORKERS: overrides engine.workers
//   - FILESCOPE_DEBUG: "1" or "true" forces debug logging with search diagnostics
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FILESCOPE_HOME_ROOT"); v != "" {
		c.Index.Root = v
	}
	if v := os.Getenv("FILESCOPE_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("FILESCOPE_LIVE_ROOT"); v != "" {
		c.Live.Root = v
	}
	if v := os.Getenv("FILESCOPE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FILESCOPE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Workers = n
		}
	}
	if v := os.Getenv("FILESCOPE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Log.Level = "debug"
		c.Log.Debug = true
	}
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "watch.debounce").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if d, ok := field.Interface().(Duration); ok {
				return d.Duration.String(), nil
			}
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Keys returns every configuration key in dot notation, sorted.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	sort.Strings(keys)
	return keys
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(tomlName(t.Field(i)), name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}
