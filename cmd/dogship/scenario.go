// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/dogship/dogship/client"
	"github.com/dogship/dogship/lib/clock"
	"github.com/dogship/dogship/wire"
)

// scenario is a scripted emission sequence for exercising a telemetry
// pipeline end to end. Scenarios are authored as JSONC files (JSON
// extended with comments and trailing commas) and run by
// 'dogship emit --scenario'.
//
// Each step sets exactly one action: emit a log event, emit a count,
// gauge, or timing measurement, sleep, or flush the pending buffers.
type scenario struct {
	Name  string         `json:"name"`
	Steps []scenarioStep `json:"steps"`
}

type scenarioStep struct {
	Log     *logStep     `json:"log,omitempty"`
	Count   *countStep   `json:"count,omitempty"`
	Gauge   *gaugeStep   `json:"gauge,omitempty"`
	Measure *measureStep `json:"measure,omitempty"`
	Sleep   string       `json:"sleep,omitempty"`
	Flush   bool         `json:"flush,omitempty"`
}

type logStep struct {
	Status  string   `json:"status,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
	Repeat  int      `json:"repeat,omitempty"`
}

type countStep struct {
	Name   string   `json:"name"`
	Value  float64  `json:"value"`
	Tags   []string `json:"tags,omitempty"`
	Repeat int      `json:"repeat,omitempty"`
}

type gaugeStep struct {
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Tags  []string `json:"tags,omitempty"`
}

type measureStep struct {
	Name string   `json:"name"`
	Work string   `json:"work,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// parseScenario strips JSONC comments and trailing commas from data,
// then unmarshals the result into a scenario.
func parseScenario(data []byte) (*scenario, error) {
	stripped := jsonc.ToJSON(data)

	var parsed scenario
	if err := json.Unmarshal(stripped, &parsed); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	return &parsed, nil
}

// readScenarioFile reads a JSONC scenario file from disk and parses it.
func readScenarioFile(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	parsed, err := parseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return parsed, nil
}

// validate checks a scenario for structural issues. Returns a list of
// human-readable issue descriptions. An empty list means the scenario
// is runnable.
func (s *scenario) validate() []string {
	var issues []string

	if len(s.Steps) == 0 {
		issues = append(issues, "scenario has no steps (at least one step is required)")
	}

	for index, step := range s.Steps {
		prefix := fmt.Sprintf("steps[%d]", index)
		issues = append(issues, validateStep(step, prefix)...)
	}

	return issues
}

// validateStep checks a single scenario step. The prefix identifies
// the step's position (e.g. "steps[0]") for error messages.
func validateStep(step scenarioStep, prefix string) []string {
	var issues []string

	actionCount := 0
	if step.Log != nil {
		actionCount++
	}
	if step.Count != nil {
		actionCount++
	}
	if step.Gauge != nil {
		actionCount++
	}
	if step.Measure != nil {
		actionCount++
	}
	if step.Sleep != "" {
		actionCount++
	}
	if step.Flush {
		actionCount++
	}

	switch {
	case actionCount > 1:
		issues = append(issues, fmt.Sprintf("%s: log, count, gauge, measure, sleep, and flush are mutually exclusive (set exactly one)", prefix))
	case actionCount == 0:
		issues = append(issues, fmt.Sprintf("%s: must set exactly one of log, count, gauge, measure, sleep, or flush", prefix))
	}

	if step.Log != nil {
		if step.Log.Message == "" {
			issues = append(issues, fmt.Sprintf("%s: log.message is required", prefix))
		}
		if step.Log.Status != "" {
			if _, err := wire.ParseStatus(step.Log.Status); err != nil {
				issues = append(issues, fmt.Sprintf("%s: %v", prefix, err))
			}
		}
		if step.Log.Repeat < 0 {
			issues = append(issues, fmt.Sprintf("%s: log.repeat must not be negative, got %d", prefix, step.Log.Repeat))
		}
	}

	if step.Count != nil {
		if step.Count.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: count.name is required", prefix))
		}
		if step.Count.Repeat < 0 {
			issues = append(issues, fmt.Sprintf("%s: count.repeat must not be negative, got %d", prefix, step.Count.Repeat))
		}
	}

	if step.Gauge != nil && step.Gauge.Name == "" {
		issues = append(issues, fmt.Sprintf("%s: gauge.name is required", prefix))
	}

	if step.Measure != nil {
		if step.Measure.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: measure.name is required", prefix))
		}
		if step.Measure.Work != "" {
			if _, err := time.ParseDuration(step.Measure.Work); err != nil {
				issues = append(issues, fmt.Sprintf("%s: invalid measure.work %q: %v", prefix, step.Measure.Work, err))
			}
		}
	}

	if step.Sleep != "" {
		duration, err := time.ParseDuration(step.Sleep)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid sleep %q: %v", prefix, step.Sleep, err))
		} else if duration < 0 {
			issues = append(issues, fmt.Sprintf("%s: sleep must not be negative, got %s", prefix, step.Sleep))
		}
	}

	return issues
}

// repeatCount maps the optional repeat field to an iteration count.
// Zero (omitted) means once.
func repeatCount(repeat int) int {
	return max(repeat, 1)
}

// run executes the scenario's steps in order against cl. Sleeps go
// through clk so tests can run scenarios against a fake clock. Flush
// failures are logged and counted rather than aborting the run; the
// context cancels the run between steps.
func (s *scenario) run(ctx context.Context, cl *client.Client, clk clock.Clock, logger *slog.Logger) (emitTally, error) {
	var tally emitTally

	for index, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return tally, fmt.Errorf("scenario interrupted at steps[%d]: %w", index, err)
		}

		switch {
		case step.Log != nil:
			status := wire.StatusInfo
			if step.Log.Status != "" {
				parsed, err := wire.ParseStatus(step.Log.Status)
				if err != nil {
					return tally, fmt.Errorf("steps[%d]: %w", index, err)
				}
				status = parsed
			}
			for range repeatCount(step.Log.Repeat) {
				cl.Log(ctx, status, step.Log.Message, step.Log.Tags...)
				tally.logs++
			}

		case step.Count != nil:
			for range repeatCount(step.Count.Repeat) {
				cl.Count(step.Count.Name, step.Count.Value, step.Count.Tags...)
				tally.metrics++
			}

		case step.Gauge != nil:
			cl.Gauge(step.Gauge.Name, step.Gauge.Value, step.Gauge.Tags...)
			tally.metrics++

		case step.Measure != nil:
			var work time.Duration
			if step.Measure.Work != "" {
				parsed, err := time.ParseDuration(step.Measure.Work)
				if err != nil {
					return tally, fmt.Errorf("steps[%d]: %w", index, err)
				}
				work = parsed
			}
			stop := cl.Measure(step.Measure.Name, step.Measure.Tags...)
			if work > 0 {
				clk.Sleep(work)
			}
			stop()
			tally.metrics++

		case step.Sleep != "":
			duration, err := time.ParseDuration(step.Sleep)
			if err != nil {
				return tally, fmt.Errorf("steps[%d]: %w", index, err)
			}
			clk.Sleep(duration)

		case step.Flush:
			if err := cl.Flush(ctx); err != nil {
				logger.Warn("scenario flush failed", "step", index, "error", err)
				tally.flushFailures++
			}
		}
	}

	return tally, nil
}
