// Package config loads operator configuration for the sigseek CLI from an
// HCL file. Flags override the file; the file overrides defaults.
package config

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the recognized option set.
type Config struct {
	// Dir is the default container directory for build/scan.
	Dir string `hcl:"dir,optional"`
	// Workers overrides the medium-based build concurrency (0 = auto).
	Workers int `hcl:"workers,optional"`
	// Force rebuilds existing artifacts during build passes.
	Force bool `hcl:"force,optional"`
	// SaveIndex persists artifacts built at registration time.
	SaveIndex *bool `hcl:"save_index,optional"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `hcl:"log_level,optional"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{LogLevel: "info"}
}

// Load decodes an HCL config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Level maps LogLevel to an slog level, defaulting to info for anything
// unrecognized.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Persist reports whether registration-time builds should save artifacts.
func (c Config) Persist() bool {
	if c.SaveIndex == nil {
		return true
	}
	return *c.SaveIndex
}
