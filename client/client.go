// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the application-facing surface of dogship: a
// buffered, agentless Datadog telemetry client. It accumulates log
// events and metric series in memory and ships them in batches,
// periodically for logs and on Flush/Shutdown for everything.
//
// Construction resolves configuration once from explicit fields,
// environment variables, and defaults; there is no global client and
// no lazy initialization. Emitting never blocks on the network and
// never surfaces delivery errors; delivery problems go to the
// configured logger, and callers that need a hard guarantee use Flush
// or Shutdown.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dogship/dogship/intake"
	"github.com/dogship/dogship/lib/clock"
	"github.com/dogship/dogship/ship"
	"github.com/dogship/dogship/wire"
)

// Client enqueues telemetry and owns the flush machinery: one
// periodic writer for log events, one manual-flush writer for metric
// series, both feeding an intake transport.
//
// All methods are safe for concurrent use. The zero value is not
// usable; construct with [New].
type Client struct {
	service    string
	hostname   string
	source     string
	logTags    []string // env:/version: + global tags; service rides the event field
	metricTags []string // service:/env:/version: + global tags
	correlator Correlator
	clk        clock.Clock

	logs    *ship.Writer[wire.LogEvent]
	metrics *ship.Writer[wire.MetricSeries]

	shutdownOnce sync.Once
	shutdownErr  error
}

// New resolves and validates config, builds the intake transport and
// writers, and starts the background log flush loop. Configuration
// problems (missing identity fields, missing API key, unknown
// integration names) are fatal here rather than surfacing later as
// silent delivery failures.
func New(config Config) (*Client, error) {
	r, err := config.resolve()
	if err != nil {
		return nil, err
	}

	intakeClient, err := intake.NewClient(intake.Config{
		Site:        r.site,
		APIKey:      r.apiKey,
		Timeout:     r.sendTimeout,
		Compression: r.compression,
		Logger:      r.logger,
		HTTPClient:  r.httpClient,
		LogsURL:     r.logsURL,
		SeriesURL:   r.seriesURL,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	logs, err := ship.NewWriter(ship.WriterConfig[wire.LogEvent]{
		Name:        "logs",
		Sender:      ship.SenderFunc[wire.LogEvent](intakeClient.SendLogs),
		Interval:    r.logFlushInterval,
		SendTimeout: r.sendTimeout,
		Clock:       r.clk,
		Logger:      r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	metrics, err := ship.NewWriter(ship.WriterConfig[wire.MetricSeries]{
		Name:        "metrics",
		Sender:      ship.SenderFunc[wire.MetricSeries](intakeClient.SendSeries),
		SendTimeout: r.sendTimeout,
		Clock:       r.clk,
		Logger:      r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	c := &Client{
		service:    r.service,
		hostname:   r.hostname,
		source:     r.source,
		logTags:    append(wire.UnifiedServiceTags("", r.env, r.version), r.tags...),
		metricTags: append(wire.UnifiedServiceTags(r.service, r.env, r.version), r.tags...),
		correlator: r.correlator,
		clk:        r.clk,
		logs:       logs,
		metrics:    metrics,
	}

	for _, name := range r.integrations {
		r.logger.Debug("integration enabled", "integration", name)
	}

	if err := logs.Start(); err != nil {
		return nil, fmt.Errorf("client: starting log flush loop: %w", err)
	}
	return c, nil
}

// EnqueueLog buffers a fully-formed log event as-is: no identity
// enrichment, no correlation. Most callers want [Client.Log] or the
// level helpers instead.
func (c *Client) EnqueueLog(event wire.LogEvent) {
	c.logs.Enqueue(event)
}

// EnqueueMetric buffers a fully-formed metric series as-is.
func (c *Client) EnqueueMetric(series wire.MetricSeries) {
	c.metrics.Enqueue(series)
}

// Log enqueues a log event stamped with the client's identity
// (hostname, service, source, env/version tags) and, when ctx carries
// an active span, the trace correlation identifiers. Fire and forget:
// delivery happens on the next flush and errors go to the logger.
func (c *Client) Log(ctx context.Context, status wire.Status, message string, tags ...string) {
	event := wire.LogEvent{
		Message:  message,
		Hostname: c.hostname,
		Service:  c.service,
		Source:   c.source,
		Status:   status,
		Tags:     wire.JoinTags(mergeTags(c.logTags, tags)),
	}
	if span, ok := c.correlator.Active(ctx); ok {
		event.TraceID = span.TraceID
		event.SpanID = span.SpanID
	}
	c.logs.Enqueue(event)
}

// Debug enqueues a debug-level log event.
func (c *Client) Debug(ctx context.Context, message string, tags ...string) {
	c.Log(ctx, wire.StatusDebug, message, tags...)
}

// Info enqueues an info-level log event.
func (c *Client) Info(ctx context.Context, message string, tags ...string) {
	c.Log(ctx, wire.StatusInfo, message, tags...)
}

// Warn enqueues a warn-level log event.
func (c *Client) Warn(ctx context.Context, message string, tags ...string) {
	c.Log(ctx, wire.StatusWarn, message, tags...)
}

// Error enqueues an error-level log event.
func (c *Client) Error(ctx context.Context, message string, tags ...string) {
	c.Log(ctx, wire.StatusError, message, tags...)
}

// Count enqueues a single-point count series: value occurrences over
// a one-second interval, stamped with the current time and the
// client's service/env/version tags. Panics if name is empty.
func (c *Client) Count(name string, value float64, tags ...string) {
	c.enqueuePoint(wire.KindCount, name, value, 1, tags)
}

// Gauge enqueues a single-point gauge series stamped with the current
// time and the client's service/env/version tags. Panics if name is
// empty.
func (c *Client) Gauge(name string, value float64, tags ...string) {
	c.enqueuePoint(wire.KindGauge, name, value, 0, tags)
}

func (c *Client) enqueuePoint(kind wire.MetricKind, name string, value float64, interval int64, tags []string) {
	if name == "" {
		panic("client: metric name must not be empty")
	}
	c.metrics.Enqueue(wire.MetricSeries{
		Metric:   name,
		Kind:     kind,
		Points:   []wire.Point{{Time: c.clk.Now().Unix(), Value: value}},
		Tags:     mergeTags(c.metricTags, tags),
		Interval: interval,
	})
}

// Flush synchronously sends everything buffered so far: the metric
// batch first, then the log batch, matching the order Shutdown
// reports in. Errors from both sends are joined; a metric delivery
// failure does not stop the log flush.
func (c *Client) Flush(ctx context.Context) error {
	return errors.Join(
		c.metrics.Flush(ctx),
		c.logs.Flush(ctx),
	)
}

// Shutdown flushes all buffered telemetry and stops the background
// flush loop. Every event enqueued before Shutdown was called has had
// its send attempted by the time Shutdown returns. Only the first
// call does the work; subsequent calls return the first call's
// result. A shut-down client cannot be restarted.
func (c *Client) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.shutdownErr = c.Flush(ctx)
		c.logs.Stop()
		c.metrics.Stop()
	})
	return c.shutdownErr
}

// mergeTags concatenates the client's base tags with per-call tags
// into a fresh slice.
func mergeTags(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(extra))
	merged = append(merged, base...)
	merged = append(merged, extra...)
	return merged
}
