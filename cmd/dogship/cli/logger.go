// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// LogOptions configure the logger handed to every command's Run
// function. [Command.Execute] binds these flags alongside the
// command's own, so --log-level and --log-format work anywhere in
// the tree.
type LogOptions struct {
	Level  string
	Format string
}

// AddFlags binds the shared logging flags to flagSet.
func (o *LogOptions) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.Level, "log-level", "info", "log verbosity: debug, info, warn, error")
	flagSet.StringVar(&o.Format, "log-format", "auto", "log output: auto, text, json")
}

// NewCommandLogger creates a structured logger for CLI command
// operations. With the default "auto" format, stderr attached to a
// terminal gets slog.TextHandler for human-readable output; piped or
// redirected stderr (CI, scripts, cron) gets slog.JSONHandler for
// machine-parseable output.
func NewCommandLogger(options LogOptions) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(options.Level) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid --log-level %q (use debug, info, warn, or error)", options.Level)
	}

	var text bool
	switch strings.ToLower(options.Format) {
	case "text":
		text = true
	case "json":
		text = false
	case "", "auto":
		text = term.IsTerminal(int(os.Stderr.Fd()))
	default:
		return nil, fmt.Errorf("invalid --log-format %q (use auto, text, or json)", options.Format)
	}

	handlerOptions := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions)), nil
}
