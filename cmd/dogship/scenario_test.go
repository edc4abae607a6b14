// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dogship/dogship/client"
	"github.com/dogship/dogship/lib/clock"
	"github.com/dogship/dogship/wire"
)

// --- Parsing ---

func TestParseScenarioStripsJSONC(t *testing.T) {
	data := []byte(`{
		// a short burst for smoke testing
		"name": "burst",
		"steps": [
			{"log": {"status": "error", "message": "db timeout", "tags": ["retry:1"], "repeat": 2}},
			{"count": {"name": "app.jobs", "value": 2}},
			/* pause before flushing */
			{"sleep": "5ms"},
			{"flush": true},
		],
	}`)

	parsed, err := parseScenario(data)
	if err != nil {
		t.Fatalf("parseScenario: %v", err)
	}

	if parsed.Name != "burst" {
		t.Errorf("name = %q, want %q", parsed.Name, "burst")
	}
	if len(parsed.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(parsed.Steps))
	}
	if parsed.Steps[0].Log == nil {
		t.Fatal("steps[0].Log is nil")
	}
	if parsed.Steps[0].Log.Status != "error" || parsed.Steps[0].Log.Repeat != 2 {
		t.Errorf("steps[0].Log = %+v, want status error repeat 2", parsed.Steps[0].Log)
	}
	if parsed.Steps[2].Sleep != "5ms" {
		t.Errorf("steps[2].Sleep = %q, want %q", parsed.Steps[2].Sleep, "5ms")
	}
	if !parsed.Steps[3].Flush {
		t.Error("steps[3].Flush = false, want true")
	}
}

func TestParseScenarioRejectsMalformedJSON(t *testing.T) {
	_, err := parseScenario([]byte(`{"name": "broken"`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parsing scenario") {
		t.Errorf("error = %q, want mention of parsing scenario", err)
	}
}

// --- Validation ---

func TestScenarioValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		scenario       *scenario
		expectedIssues int
		wantSubstrings []string
	}{
		{
			name: "valid mixed scenario",
			scenario: &scenario{
				Name: "smoke",
				Steps: []scenarioStep{
					{Log: &logStep{Status: "error", Message: "db timeout", Repeat: 3}},
					{Log: &logStep{Message: "defaults to info"}},
					{Count: &countStep{Name: "app.jobs", Value: 1}},
					{Gauge: &gaugeStep{Name: "app.depth", Value: 7.5}},
					{Measure: &measureStep{Name: "app.step", Work: "5ms"}},
					{Sleep: "10ms"},
					{Flush: true},
				},
			},
			expectedIssues: 0,
		},
		{
			name:           "no steps",
			scenario:       &scenario{Name: "empty"},
			expectedIssues: 1,
			wantSubstrings: []string{"no steps"},
		},
		{
			name: "step with no action",
			scenario: &scenario{
				Steps: []scenarioStep{{}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"must set exactly one of log, count, gauge, measure, sleep, or flush"},
		},
		{
			name: "step with two actions",
			scenario: &scenario{
				Steps: []scenarioStep{
					{Log: &logStep{Message: "hello"}, Flush: true},
				},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"mutually exclusive"},
		},
		{
			name: "log missing message",
			scenario: &scenario{
				Steps: []scenarioStep{{Log: &logStep{Status: "info"}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"log.message is required"},
		},
		{
			name: "log with unknown status",
			scenario: &scenario{
				Steps: []scenarioStep{{Log: &logStep{Status: "warning", Message: "x"}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"unknown log status"},
		},
		{
			name: "log with negative repeat",
			scenario: &scenario{
				Steps: []scenarioStep{{Log: &logStep{Message: "x", Repeat: -1}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"log.repeat must not be negative"},
		},
		{
			name: "count missing name",
			scenario: &scenario{
				Steps: []scenarioStep{{Count: &countStep{Value: 1}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"count.name is required"},
		},
		{
			name: "gauge missing name",
			scenario: &scenario{
				Steps: []scenarioStep{{Gauge: &gaugeStep{Value: 1}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"gauge.name is required"},
		},
		{
			name: "measure missing name",
			scenario: &scenario{
				Steps: []scenarioStep{{Measure: &measureStep{Work: "5ms"}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"measure.name is required"},
		},
		{
			name: "measure with unparseable work",
			scenario: &scenario{
				Steps: []scenarioStep{{Measure: &measureStep{Name: "app.step", Work: "fast"}}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"invalid measure.work"},
		},
		{
			name: "unparseable sleep",
			scenario: &scenario{
				Steps: []scenarioStep{{Sleep: "a while"}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"invalid sleep"},
		},
		{
			name: "negative sleep",
			scenario: &scenario{
				Steps: []scenarioStep{{Sleep: "-5ms"}},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"sleep must not be negative"},
		},
		{
			name: "multiple issues reported together",
			scenario: &scenario{
				Steps: []scenarioStep{
					{},                  // no action
					{Log: &logStep{}},   // missing message
					{Sleep: "a moment"}, // unparseable
				},
			},
			expectedIssues: 3,
			wantSubstrings: []string{"steps[0]", "steps[1]", "steps[2]"},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			issues := testCase.scenario.validate()
			if len(issues) != testCase.expectedIssues {
				t.Fatalf("got %d issues, want %d:\n%s", len(issues), testCase.expectedIssues, strings.Join(issues, "\n"))
			}

			for _, substring := range testCase.wantSubstrings {
				found := false
				for _, issue := range issues {
					if strings.Contains(issue, substring) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected issue containing %q, got:\n%s", substring, strings.Join(issues, "\n"))
				}
			}
		})
	}
}

// --- Execution ---

// newScenarioClient builds a client delivering to the given base URL.
func newScenarioClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cl, err := client.New(client.Config{
		Service:   "scenario-test",
		Env:       "test",
		Version:   "0.0.1",
		APIKey:    "test-key",
		Logger:    logger,
		LogsURL:   baseURL + "/api/v2/logs",
		SeriesURL: baseURL + "/api/v1/series",
	})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return cl
}

func TestScenarioRunDeliversThroughClient(t *testing.T) {
	intake, store := newTestIntake(t, "")
	server := httptest.NewServer(intake.routes())
	defer server.Close()

	cl := newScenarioClient(t, server.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scen := &scenario{
		Name: "smoke",
		Steps: []scenarioStep{
			{Log: &logStep{Status: "error", Message: "job failed", Repeat: 2}},
			{Log: &logStep{Message: "job recovered"}},
			{Count: &countStep{Name: "app.jobs", Value: 1, Repeat: 3}},
			{Gauge: &gaugeStep{Name: "app.depth", Value: 7.5}},
			{Measure: &measureStep{Name: "app.step", Work: "1ms"}},
			{Flush: true},
		},
	}
	if issues := scen.validate(); len(issues) > 0 {
		t.Fatalf("scenario unexpectedly invalid:\n%s", strings.Join(issues, "\n"))
	}

	tally, err := scen.run(context.Background(), cl, clock.Real(), logger)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cl.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if tally.logs != 3 {
		t.Errorf("tally.logs = %d, want 3", tally.logs)
	}
	if tally.metrics != 5 {
		t.Errorf("tally.metrics = %d, want 5", tally.metrics)
	}
	if tally.flushFailures != 0 {
		t.Errorf("tally.flushFailures = %d, want 0", tally.flushFailures)
	}

	if got := store.queryLogs(logFilter{}); len(got) != 3 {
		t.Errorf("stored logs = %d, want 3", len(got))
	}
	if got := store.queryLogs(logFilter{status: "error"}); len(got) != 2 {
		t.Errorf("stored error logs = %d, want 2", len(got))
	}
	if got := store.querySeries(seriesFilter{metric: "app.jobs"}); len(got) != 3 {
		t.Errorf("stored app.jobs series = %d, want 3", len(got))
	}
	if got := store.querySeries(seriesFilter{kind: wire.KindDistribution}); len(got) != 1 {
		t.Errorf("stored distribution series = %d, want 1", len(got))
	}

	// Metric series carry the client's identity tags.
	gauges := store.querySeries(seriesFilter{metric: "app.depth"})
	if len(gauges) != 1 {
		t.Fatalf("stored app.depth series = %d, want 1", len(gauges))
	}
	tagged := strings.Join(gauges[0].Tags, ",")
	if !strings.Contains(tagged, "service:scenario-test") {
		t.Errorf("gauge tags %q missing service tag", tagged)
	}
}

func TestScenarioRunCountsFlushFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "intake unavailable", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	cl := newScenarioClient(t, failing.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scen := &scenario{
		Steps: []scenarioStep{
			{Log: &logStep{Message: "doomed"}},
			{Flush: true},
		},
	}

	tally, err := scen.run(context.Background(), cl, clock.Real(), logger)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if tally.flushFailures != 1 {
		t.Errorf("tally.flushFailures = %d, want 1", tally.flushFailures)
	}

	// The failed batch was dropped, so shutdown has nothing left to
	// send and succeeds.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cl.Shutdown(shutdownCtx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestScenarioRunStopsOnCanceledContext(t *testing.T) {
	intake, store := newTestIntake(t, "")
	server := httptest.NewServer(intake.routes())
	defer server.Close()

	cl := newScenarioClient(t, server.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scen := &scenario{
		Steps: []scenarioStep{
			{Log: &logStep{Message: "never emitted"}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tally, err := scen.run(ctx, cl, clock.Real(), logger)
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("error = %q, want mention of interruption", err)
	}
	if tally.logs != 0 || tally.metrics != 0 {
		t.Errorf("tally = %+v, want nothing emitted", tally)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := cl.Shutdown(shutdownCtx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if got := store.counts().logBatches; got != 0 {
		t.Errorf("delivered log batches = %d, want 0", got)
	}
}

// --- Repeat handling ---

func TestRepeatCount(t *testing.T) {
	tests := []struct {
		repeat int
		want   int
	}{
		{repeat: 0, want: 1},
		{repeat: 1, want: 1},
		{repeat: 5, want: 5},
	}
	for _, tt := range tests {
		if got := repeatCount(tt.repeat); got != tt.want {
			t.Errorf("repeatCount(%d) = %d, want %d", tt.repeat, got, tt.want)
		}
	}
}
