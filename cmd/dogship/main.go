// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Dogship is the command-line companion to the telemetry shipping
// library: 'emit' pushes demo or scripted telemetry through a full
// client, and 'mock' serves a local intake that stores submissions
// in memory for inspection. Together they exercise the whole path
// from enqueue through batching, compression, and delivery without
// touching a real account.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dogship/dogship/cmd/dogship/cli"
	"github.com/dogship/dogship/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCommand().Execute(ctx, os.Args[1:])
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "dogship",
		Summary: "Telemetry shipping toolkit",
		Description: "Dogship ships logs and metrics to Datadog-compatible intake\n" +
			"endpoints. This binary is the development companion to the client\n" +
			"library: emit telemetry through a fully configured client, or run\n" +
			"a local mock intake to see exactly what would be sent.",
		Subcommands: []*cli.Command{
			emitCommand(),
			mockCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					version.Print("dogship")
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "emit ten demo events into a local capture, no credentials needed",
				Command:     "dogship emit --dry-run",
			},
			{
				Description: "run a local intake, then point emit at it",
				Command:     "dogship mock",
			},
		},
	}
}
