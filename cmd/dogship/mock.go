// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dogship/dogship/cmd/dogship/cli"
)

type mockParams struct {
	Listen    string `flag:"listen" desc:"address to listen on" default:"127.0.0.1:9529"`
	APIKey    string `flag:"api-key" desc:"require this exact DD-API-KEY on submissions (default: any non-empty key)"`
	MaxStored int    `flag:"max-stored" desc:"events retained per stream before the oldest are dropped" default:"10000"`
}

func mockCommand() *cli.Command {
	params := &mockParams{}
	return &cli.Command{
		Name:    "mock",
		Summary: "Run a local intake endpoint that stores submissions in memory",
		Description: "Mock serves the log and metric submission endpoints on a local\n" +
			"address, keeps everything it receives in memory, and exposes query\n" +
			"endpoints for inspecting what arrived. Point a client at it with\n" +
			"its logs and series URL overrides, or use 'dogship emit --dry-run'\n" +
			"which wires one up automatically.",
		Usage:  "dogship mock [flags]",
		Params: func() any { return params },
		Examples: []cli.Example{
			{
				Description: "serve on the default address",
				Command:     "dogship mock",
			},
			{
				Description: "require an exact API key and keep more history",
				Command:     "dogship mock --api-key test-key --max-stored 100000",
			},
			{
				Description: "inspect stored logs from another terminal",
				Command:     "curl 'http://127.0.0.1:9529/query/logs?status=error'",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runMock(ctx, params, logger)
		},
	}
}

func runMock(ctx context.Context, params *mockParams, logger *slog.Logger) error {
	if params.MaxStored <= 0 {
		return fmt.Errorf("--max-stored must be positive, got %d", params.MaxStored)
	}

	store := newMockStore(params.MaxStored)
	intake := newIntakeServer(store, params.APIKey, logger)

	listener, err := net.Listen("tcp", params.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", params.Listen, err)
	}

	server := &http.Server{Handler: intake.routes()}
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(listener)
	}()

	logger.Info("mock intake listening",
		"address", listener.Addr().String(),
		"max_stored", params.MaxStored,
		"exact_key", params.APIKey != "",
	)

	select {
	case err := <-serveDone:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
