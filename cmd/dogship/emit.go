// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/dogship/dogship/client"
	"github.com/dogship/dogship/cmd/dogship/cli"
	"github.com/dogship/dogship/lib/clock"
	"github.com/dogship/dogship/lib/secret"
	"github.com/dogship/dogship/wire"
)

// dryRunCapacity bounds the in-process capture intake. Large enough
// that no realistic demo or scenario run drops anything.
const dryRunCapacity = 100000

type emitParams struct {
	ConfigFile     string        `flag:"config" desc:"path to a YAML client config file"`
	Scenario       string        `flag:"scenario" desc:"JSONC scenario file to run instead of the built-in demo"`
	Site           string        `flag:"site" desc:"intake site domain (default: datadoghq.com)"`
	IntakeURL      string        `flag:"intake-url" desc:"base URL of a local or proxy intake, e.g. http://127.0.0.1:9529 (overrides --site)"`
	Service        string        `flag:"service" desc:"service tag on emitted telemetry (default: dogship-demo)"`
	Env            string        `flag:"env" desc:"environment tag (default: dev)"`
	ServiceVersion string        `flag:"service-version" desc:"version tag (default: 0.0.0)"`
	APIKeyFile     string        `flag:"api-key-file" desc:"file holding the intake API key (\"-\" reads standard input)"`
	FlushInterval  time.Duration `flag:"flush-interval" desc:"background log flush interval (default: 500ms)"`
	Compression    string        `flag:"compression" desc:"payload encoding: none, gzip, or zlib"`
	Count          int           `flag:"count,n" desc:"demo events to emit" default:"10"`
	Gap            time.Duration `flag:"gap" desc:"pause between demo events" default:"100ms"`
	DryRun         bool          `flag:"dry-run" desc:"capture in an in-process intake instead of sending"`
}

func emitCommand() *cli.Command {
	params := &emitParams{}
	return &cli.Command{
		Name:    "emit",
		Summary: "Emit demo or scripted telemetry through the shipping client",
		Description: "Emit builds a full client from flags, environment variables, and\n" +
			"an optional config file, then pushes telemetry through it: either\n" +
			"the built-in demo stream (a cycle of log severities plus a counter,\n" +
			"a heap gauge, and a timing measurement) or a JSONC scenario file.\n" +
			"With --dry-run everything is captured by an in-process intake and\n" +
			"summarized instead of leaving the machine.",
		Usage:  "dogship emit [flags]",
		Params: func() any { return params },
		Examples: []cli.Example{
			{
				Description: "capture the demo stream locally, nothing leaves the machine",
				Command:     "dogship emit --dry-run",
			},
			{
				Description: "send the demo stream to a mock started with 'dogship mock'",
				Command:     "DD_API_KEY=anything dogship emit --intake-url http://127.0.0.1:9529",
			},
			{
				Description: "run a scripted scenario against the real intake",
				Command:     "dogship emit --scenario burst.jsonc --api-key-file ~/.dd-api-key",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("emit takes no positional arguments, got %q", args)
			}
			return runEmit(ctx, params, logger)
		},
	}
}

func runEmit(ctx context.Context, params *emitParams, logger *slog.Logger) error {
	var scen *scenario
	if params.Scenario != "" {
		loaded, err := readScenarioFile(params.Scenario)
		if err != nil {
			return err
		}
		if issues := loaded.validate(); len(issues) > 0 {
			return fmt.Errorf("invalid scenario %s:\n  %s", params.Scenario, strings.Join(issues, "\n  "))
		}
		scen = loaded
	} else {
		if params.Count <= 0 {
			return fmt.Errorf("--count must be positive, got %d", params.Count)
		}
		if params.Gap < 0 {
			return fmt.Errorf("--gap must not be negative, got %v", params.Gap)
		}
	}

	config := client.Config{Logger: logger}
	if params.ConfigFile != "" {
		loaded, err := client.ConfigFromFile(params.ConfigFile)
		if err != nil {
			return err
		}
		config = loaded
		config.Logger = logger
	}

	// Flags override file values; anything still empty falls through
	// to environment variables and defaults inside the client.
	if params.Site != "" {
		config.Site = params.Site
	}
	if params.Service != "" {
		config.Service = params.Service
	}
	if params.Env != "" {
		config.Env = params.Env
	}
	if params.ServiceVersion != "" {
		config.Version = params.ServiceVersion
	}
	if params.APIKeyFile != "" {
		config.APIKeyFile = params.APIKeyFile
	}
	if params.FlushInterval != 0 {
		config.LogFlushInterval = params.FlushInterval
	}
	if params.Compression != "" {
		config.Compression = params.Compression
	}
	if params.IntakeURL != "" {
		base := strings.TrimRight(params.IntakeURL, "/")
		config.LogsURL = base + "/api/v2/logs"
		config.SeriesURL = base + "/api/v1/series"
	}
	fillDemoIdentity(&config)

	var capture *mockStore
	if params.DryRun {
		store, stopCapture, err := startCaptureIntake(&config, logger)
		if err != nil {
			return err
		}
		defer stopCapture()
		capture = store
	} else if err := promptForAPIKey(&config); err != nil {
		return err
	}

	cl, err := client.New(config)
	if err != nil {
		return err
	}

	clk := clock.Real()
	var tally emitTally
	var runErr error
	if scen != nil {
		logger.Info("running scenario", "name", scen.Name, "steps", len(scen.Steps))
		tally, runErr = scen.run(ctx, cl, clk, logger)
	} else {
		tally = runDemo(ctx, cl, clk, params.Count, params.Gap, logger)
	}

	// Shut down on a fresh context so pending batches still drain
	// after an interrupt canceled ctx.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cl.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutting down client: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	printSummary(os.Stdout, tally, capture)
	return nil
}

// fillDemoIdentity applies demo identity defaults so emit works out
// of the box. Environment variables still win over these, matching
// the client's flag > file > environment resolution order.
func fillDemoIdentity(config *client.Config) {
	if config.Service == "" && os.Getenv("DD_SERVICE") == "" {
		config.Service = "dogship-demo"
	}
	if config.Env == "" && os.Getenv("DD_ENV") == "" {
		config.Env = "dev"
	}
	if config.Version == "" && os.Getenv("DD_VERSION") == "" {
		config.Version = "0.0.0"
	}
}

// promptForAPIKey interactively reads an API key when none is
// configured and standard input is a terminal. Non-interactive runs
// skip the prompt and surface the client's configuration error
// instead.
func promptForAPIKey(config *client.Config) error {
	if config.APIKey != "" || config.APIKeyFile != "" || os.Getenv("DD_API_KEY") != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprint(os.Stderr, "API key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}

	config.APIKey = string(raw)
	secret.Zero(raw)
	return nil
}

// startCaptureIntake starts an in-process mock intake on a loopback
// port and points config's endpoint overrides at it. The returned
// store accumulates whatever the client delivers; stop shuts the
// server down.
func startCaptureIntake(config *client.Config, logger *slog.Logger) (store *mockStore, stop func(), err error) {
	store = newMockStore(dryRunCapacity)
	intake := newIntakeServer(store, "", logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("starting capture intake: %w", err)
	}

	server := &http.Server{Handler: intake.routes()}
	go server.Serve(listener)

	base := "http://" + listener.Addr().String()
	config.LogsURL = base + "/api/v2/logs"
	config.SeriesURL = base + "/api/v1/series"
	if config.APIKey == "" && config.APIKeyFile == "" && os.Getenv("DD_API_KEY") == "" {
		// The capture intake accepts any non-empty key; fabricate one
		// so a dry run never needs a real credential.
		config.APIKey = "dry-run"
	}

	stop = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
	return store, stop, nil
}

// runDemo emits a small mixed stream: one log event per iteration
// cycling through the severity levels, an event counter, a heap
// gauge, and a timing measurement around each pause.
func runDemo(ctx context.Context, cl *client.Client, clk clock.Clock, count int, gap time.Duration, logger *slog.Logger) emitTally {
	statuses := []wire.Status{wire.StatusDebug, wire.StatusInfo, wire.StatusWarn, wire.StatusError}

	var tally emitTally
	for i := range count {
		if ctx.Err() != nil {
			logger.Info("demo interrupted", "emitted", i, "requested", count)
			break
		}

		status := statuses[i%len(statuses)]
		cl.Log(ctx, status, fmt.Sprintf("demo event %d of %d", i+1, count), "iteration:"+strconv.Itoa(i+1))
		tally.logs++

		cl.Count("dogship.demo.events", 1)
		tally.metrics++

		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		cl.Gauge("dogship.demo.heap_bytes", float64(stats.HeapAlloc))
		tally.metrics++

		stop := cl.Measure("dogship.demo.step_duration")
		clk.Sleep(gap)
		stop()
		tally.metrics++
	}
	return tally
}

// emitTally counts what an emission run produced.
type emitTally struct {
	logs          int
	metrics       int
	flushFailures int
}

// printSummary writes a short table of what was emitted and, for dry
// runs, what the capture intake stored.
func printSummary(w io.Writer, tally emitTally, capture *mockStore) {
	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	if capture == nil {
		fmt.Fprintln(table, "STREAM\tEMITTED")
		fmt.Fprintf(table, "logs\t%d\n", tally.logs)
		fmt.Fprintf(table, "metrics\t%d\n", tally.metrics)
	} else {
		counts := capture.counts()
		fmt.Fprintln(table, "STREAM\tEMITTED\tCAPTURED\tBATCHES\tDROPPED")
		fmt.Fprintf(table, "logs\t%d\t%d\t%d\t%d\n", tally.logs, counts.storedLogs, counts.logBatches, counts.droppedLogs)
		fmt.Fprintf(table, "metrics\t%d\t%d\t%d\t%d\n", tally.metrics, counts.storedSeries, counts.seriesBatches, counts.droppedSeries)
	}
	table.Flush()

	if tally.flushFailures > 0 {
		fmt.Fprintf(w, "\n%d flush(es) failed; see log output above\n", tally.flushFailures)
	}
}
