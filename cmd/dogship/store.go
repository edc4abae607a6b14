// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"sync"

	"github.com/dogship/dogship/wire"
)

// mockStore holds captured intake traffic in bounded memory. Each
// stream keeps at most capacity events; when a batch pushes a stream
// past the cap, the oldest stored events are discarded and counted
// as dropped.
type mockStore struct {
	mu       sync.Mutex
	capacity int

	logs   []wire.LogEvent
	series []wire.MetricSeries

	logBatches    uint64
	seriesBatches uint64
	droppedLogs   uint64
	droppedSeries uint64
}

// newMockStore creates a store keeping at most capacity events per
// stream. Panics if capacity is not positive.
func newMockStore(capacity int) *mockStore {
	if capacity <= 0 {
		panic("mockStore: capacity must be positive")
	}
	return &mockStore{capacity: capacity}
}

func (s *mockStore) addLogs(events []wire.LogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logBatches++
	s.logs = append(s.logs, events...)
	if overflow := len(s.logs) - s.capacity; overflow > 0 {
		s.logs = s.logs[overflow:]
		s.droppedLogs += uint64(overflow)
	}
}

func (s *mockStore) addSeries(series []wire.MetricSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seriesBatches++
	s.series = append(s.series, series...)
	if overflow := len(s.series) - s.capacity; overflow > 0 {
		s.series = s.series[overflow:]
		s.droppedSeries += uint64(overflow)
	}
}

// logFilter selects stored log events. Empty fields match everything.
type logFilter struct {
	service   string
	status    string
	substring string
}

func (s *mockStore) queryLogs(filter logFilter) []wire.LogEvent {
	s.mu.Lock()
	// Copy the slice under lock, then filter the copy.
	stored := make([]wire.LogEvent, len(s.logs))
	copy(stored, s.logs)
	s.mu.Unlock()

	matched := make([]wire.LogEvent, 0, len(stored))
	for _, event := range stored {
		if filter.service != "" && event.Service != filter.service {
			continue
		}
		if filter.status != "" && string(event.Status) != filter.status {
			continue
		}
		if filter.substring != "" && !strings.Contains(event.Message, filter.substring) {
			continue
		}
		matched = append(matched, event)
	}
	return matched
}

// seriesFilter selects stored metric series. Empty fields match
// everything.
type seriesFilter struct {
	metric string
	kind   wire.MetricKind
}

func (s *mockStore) querySeries(filter seriesFilter) []wire.MetricSeries {
	s.mu.Lock()
	stored := make([]wire.MetricSeries, len(s.series))
	copy(stored, s.series)
	s.mu.Unlock()

	matched := make([]wire.MetricSeries, 0, len(stored))
	for _, series := range stored {
		if filter.metric != "" && series.Metric != filter.metric {
			continue
		}
		if filter.kind != "" && series.Kind != filter.kind {
			continue
		}
		matched = append(matched, series)
	}
	return matched
}

// storeCounts is a point-in-time snapshot of stored and dropped totals.
type storeCounts struct {
	storedLogs    int
	storedSeries  int
	logBatches    uint64
	seriesBatches uint64
	droppedLogs   uint64
	droppedSeries uint64
}

func (s *mockStore) counts() storeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return storeCounts{
		storedLogs:    len(s.logs),
		storedSeries:  len(s.series),
		logBatches:    s.logBatches,
		seriesBatches: s.seriesBatches,
		droppedLogs:   s.droppedLogs,
		droppedSeries: s.droppedSeries,
	}
}

func (s *mockStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = nil
	s.series = nil
	s.logBatches = 0
	s.seriesBatches = 0
	s.droppedLogs = 0
	s.droppedSeries = 0
}
