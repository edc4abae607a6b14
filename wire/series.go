// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// MetricKind selects how the intake aggregates a series.
type MetricKind string

const (
	// KindCount is a monotonic delta over the flush interval.
	KindCount MetricKind = "count"
	// KindGauge is a point-in-time value; the last point per
	// interval wins.
	KindGauge MetricKind = "gauge"
	// KindRate is a count normalized by the series interval.
	KindRate MetricKind = "rate"
	// KindDistribution feeds server-side percentile aggregation.
	// The series payload spells it "dist".
	KindDistribution MetricKind = "dist"
)

// ParseMetricKind parses a metric kind from its string
// representation. "distribution" is accepted as an alias for the
// wire form "dist".
func ParseMetricKind(name string) (MetricKind, error) {
	switch name {
	case "distribution":
		return KindDistribution, nil
	}
	switch MetricKind(name) {
	case KindCount, KindGauge, KindRate, KindDistribution:
		return MetricKind(name), nil
	default:
		return "", fmt.Errorf("unknown metric kind: %q", name)
	}
}

// Point is a single sample: a Unix-seconds timestamp and a value.
// The v1 series API encodes points as two-element arrays, so Point
// marshals as [time, value] rather than an object.
type Point struct {
	Time  int64
	Value float64
}

// MarshalJSON encodes the point as a [time, value] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Time), p.Value})
}

// UnmarshalJSON decodes a [time, value] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding metric point: %w", err)
	}
	p.Time = int64(pair[0])
	p.Value = pair[1]
	return nil
}

// MetricSeries is one named series in a v1 series intake payload.
type MetricSeries struct {
	// Metric is the dot-separated metric name
	// ("dogship.flush.duration"). Required.
	Metric string `json:"metric"`

	// Kind is emitted under the legacy "type" key.
	Kind MetricKind `json:"type"`

	// Points holds the samples for this submission.
	Points []Point `json:"points"`

	// Tags in "key:value" form.
	Tags []string `json:"tags,omitempty"`

	// Interval is the aggregation window in seconds. Meaningful
	// for count and rate kinds; zero omits it.
	Interval int64 `json:"interval,omitempty"`

	// Host overrides the submitting hostname for this series.
	Host string `json:"host,omitempty"`
}

// SeriesPayload is the envelope posted to the v1 series endpoint.
type SeriesPayload struct {
	Series []MetricSeries `json:"series"`
}
