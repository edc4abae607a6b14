// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the JSON wire types accepted by the Datadog
// intake endpoints: log events for the v2 logs API and metric series
// for the v1 series API.
//
// The types here are pure data. Batching lives in package ship and
// transport in package intake; application-facing construction (tag
// enrichment, trace correlation, timestamping) lives in package
// client. Batches are plain slices: once a batch has been drained
// from a buffer it is owned by the sender and must not be mutated.
package wire

import "fmt"

// Status is the severity label attached to a log event. The v2 logs
// intake accepts freeform status strings but maps these four onto its
// standard levels ("warn", not "warning").
type Status string

const (
	StatusDebug Status = "debug"
	StatusInfo  Status = "info"
	StatusWarn  Status = "warn"
	StatusError Status = "error"
)

// ParseStatus parses a status from its string representation.
func ParseStatus(name string) (Status, error) {
	switch Status(name) {
	case StatusDebug, StatusInfo, StatusWarn, StatusError:
		return Status(name), nil
	default:
		return "", fmt.Errorf("unknown log status: %q", name)
	}
}

// LogEvent is a single entry in a v2 logs intake payload. A batch of
// log events is sent as a bare JSON array.
//
// TraceID and SpanID carry APM correlation identifiers under the
// "dd.trace_id" and "dd.span_id" keys. They are emitted as JSON
// numbers and omitted entirely when zero, so uncorrelated events
// carry no trace fields at all.
type LogEvent struct {
	// Message is the log line. Required.
	Message string `json:"message"`

	// Hostname identifies the emitting host.
	Hostname string `json:"hostname,omitempty"`

	// Service is the service name, matching the service tag on
	// metrics from the same process.
	Service string `json:"service,omitempty"`

	// Source is the ddsource attribute, which selects the intake
	// processing pipeline. Dogship emits "go" by default.
	Source string `json:"ddsource,omitempty"`

	// Status is the severity level.
	Status Status `json:"status,omitempty"`

	// Tags is the ddtags attribute: tags joined with commas
	// ("env:prod,version:1.2.0,team:payments"). Build it with
	// JoinTags.
	Tags string `json:"ddtags,omitempty"`

	// TraceID correlates the event with an APM trace.
	TraceID uint64 `json:"dd.trace_id,omitempty"`

	// SpanID correlates the event with the active span.
	SpanID uint64 `json:"dd.span_id,omitempty"`
}
