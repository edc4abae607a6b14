// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package ship

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dogship/dogship/lib/clock"
)

// Sender delivers a drained batch to its destination. The batch is
// never empty and is owned by the sender for the duration of the
// call. Implementations must be safe for concurrent use.
type Sender[E any] interface {
	Send(ctx context.Context, batch []E) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc[E any] func(ctx context.Context, batch []E) error

// Send calls f.
func (f SenderFunc[E]) Send(ctx context.Context, batch []E) error {
	return f(ctx, batch)
}

// WriterConfig holds the parameters for creating a [Writer].
type WriterConfig[E any] struct {
	// Name identifies the stream in log output ("logs", "metrics").
	Name string

	// Sender delivers drained batches.
	Sender Sender[E]

	// Interval between automatic flushes. Zero disables the flush
	// loop; the writer then flushes only when Flush is called.
	Interval time.Duration

	// SendTimeout bounds each automatic flush. Manual flushes are
	// bounded by the caller's context instead.
	SendTimeout time.Duration

	// Clock provides time for the flush ticker. Production callers
	// pass clock.Real(); tests pass clock.Fake() for deterministic
	// control.
	Clock clock.Clock

	// Logger receives flush failure reports.
	Logger *slog.Logger
}

// Writer accumulates events and hands them to a Sender in batches,
// either on a fixed interval or when the owner calls Flush. Enqueue
// never blocks on delivery: the buffer is swapped out under a mutex
// and the send happens on whichever goroutine triggered the flush.
//
// A batch whose send fails is dropped, not retried. Lost telemetry is
// preferable to unbounded memory growth or degraded application
// latency.
type Writer[E any] struct {
	name        string
	sender      Sender[E]
	sendTimeout time.Duration
	logger      *slog.Logger
	buffer      *Buffer[E]
	scheduler   *Scheduler
}

// NewWriter creates a writer from config. The flush loop is not
// running yet; call [Writer.Start].
func NewWriter[E any](config WriterConfig[E]) (*Writer[E], error) {
	if config.Name == "" {
		return nil, fmt.Errorf("writer: Name is required")
	}
	if config.Sender == nil {
		return nil, fmt.Errorf("writer %s: Sender is required", config.Name)
	}
	if config.Interval < 0 {
		return nil, fmt.Errorf("writer %s: Interval must not be negative, got %v", config.Name, config.Interval)
	}
	if config.SendTimeout <= 0 {
		return nil, fmt.Errorf("writer %s: SendTimeout must be positive, got %v", config.Name, config.SendTimeout)
	}
	if config.Clock == nil {
		return nil, fmt.Errorf("writer %s: Clock is required", config.Name)
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("writer %s: Logger is required", config.Name)
	}

	w := &Writer[E]{
		name:        config.Name,
		sender:      config.Sender,
		sendTimeout: config.SendTimeout,
		logger:      config.Logger,
		buffer:      NewBuffer[E](),
	}
	if config.Interval > 0 {
		w.scheduler = NewScheduler(config.Clock, config.Interval, w.timedFlush)
	}
	return w, nil
}

// Enqueue buffers events for the next flush.
func (w *Writer[E]) Enqueue(events ...E) {
	w.buffer.Append(events...)
}

// Len returns the number of events waiting for the next flush.
func (w *Writer[E]) Len() int {
	return w.buffer.Len()
}

// Start launches the periodic flush loop. A no-op for writers created
// with a zero interval. Returns an error if the loop is already
// running or was stopped.
func (w *Writer[E]) Start() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Start()
}

// Stop halts the periodic flush loop and waits for any in-progress
// automatic flush to finish. It does not flush remaining events;
// callers that want them delivered call Flush first. Safe to call
// multiple times.
func (w *Writer[E]) Stop() {
	if w.scheduler == nil {
		return
	}
	w.scheduler.Stop()
}

// Flush drains the buffer and sends the batch. Returns nil without
// calling the sender when the buffer is empty. On failure the batch
// is dropped and the error is both logged and returned, so manual
// callers see it while the flush loop relies on the log.
func (w *Writer[E]) Flush(ctx context.Context) error {
	batch := w.buffer.Drain()
	if len(batch) == 0 {
		return nil
	}
	if err := w.sender.Send(ctx, batch); err != nil {
		w.logger.Error("flush failed",
			"stream", w.name,
			"error", err,
			"dropped", len(batch),
		)
		return fmt.Errorf("flushing %s: %w", w.name, err)
	}
	return nil
}

// timedFlush is the scheduler callback: a Flush bounded by the
// configured send timeout. The error is already logged by Flush and
// has no caller to return to.
func (w *Writer[E]) timedFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()
	_ = w.Flush(ctx)
}
