// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/dogship/dogship/lib/netutil"
	"github.com/dogship/dogship/lib/secret"
	"github.com/dogship/dogship/wire"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

func testKey(t *testing.T) *secret.Buffer {
	t.Helper()
	key, err := secret.NewFromBytes([]byte(testAPIKey))
	if err != nil {
		t.Fatalf("creating API key buffer: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

// recordedRequest captures what the intake handler saw for later
// assertions, after the response has been written.
type recordedRequest struct {
	method   string
	path     string
	header   http.Header
	body     []byte
	bodyErr  error
	received bool
}

// recordingIntake is an httptest handler that records the last
// request and responds with the configured status.
type recordingIntake struct {
	mu     sync.Mutex
	status int
	reply  string
	last   recordedRequest
	count  int
}

func (h *recordingIntake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.count++
	h.last = recordedRequest{
		method:   r.Method,
		path:     r.URL.Path,
		header:   r.Header.Clone(),
		received: true,
	}
	h.last.body, h.last.bodyErr = netutil.ReadBounded(r.Body, netutil.MaxResponseSize)
	status := h.status
	reply := h.reply
	h.mu.Unlock()

	w.WriteHeader(status)
	if reply != "" {
		w.Write([]byte(reply))
	}
}

func (h *recordingIntake) requestCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *recordingIntake) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.last.received {
		t.Fatal("intake handler was never called")
	}
	if h.last.bodyErr != nil {
		t.Fatalf("reading request body: %v", h.last.bodyErr)
	}
	return h.last
}

func newTestClient(t *testing.T, serverURL string, mutate func(*Config)) *Client {
	t.Helper()
	config := Config{
		APIKey:    testKey(t),
		Logger:    slog.Default(),
		LogsURL:   serverURL + "/api/v2/logs",
		SeriesURL: serverURL + "/api/v1/series",
	}
	if mutate != nil {
		mutate(&config)
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestSendLogs(t *testing.T) {
	handler := &recordingIntake{status: http.StatusAccepted, reply: "{}"}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	events := []wire.LogEvent{
		{Message: "first", Status: wire.StatusInfo},
		{Message: "second", Status: wire.StatusError},
	}
	if err := client.SendLogs(context.Background(), events); err != nil {
		t.Fatalf("SendLogs: %v", err)
	}

	request := handler.lastRequest(t)
	if request.method != http.MethodPost {
		t.Errorf("method = %s, want POST", request.method)
	}
	if request.path != "/api/v2/logs" {
		t.Errorf("path = %s, want /api/v2/logs", request.path)
	}
	if got := request.header.Get("DD-API-KEY"); got != testAPIKey {
		t.Errorf("DD-API-KEY = %q, want %q", got, testAPIKey)
	}
	if got := request.header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := request.header.Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want unset", got)
	}

	var decoded []wire.LogEvent
	if err := netutil.DecodeResponse(strings.NewReader(string(request.body)), &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Message != "first" || decoded[1].Message != "second" {
		t.Errorf("payload = %+v", decoded)
	}
}

func TestSendSeries(t *testing.T) {
	handler := &recordingIntake{status: http.StatusAccepted, reply: `{"status":"ok"}`}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	series := []wire.MetricSeries{{
		Metric: "dogship.requests",
		Kind:   wire.KindCount,
		Points: []wire.Point{{Time: 1700000000, Value: 5}},
		Tags:   []string{"env:test"},
	}}
	if err := client.SendSeries(context.Background(), series); err != nil {
		t.Fatalf("SendSeries: %v", err)
	}

	request := handler.lastRequest(t)
	if request.path != "/api/v1/series" {
		t.Errorf("path = %s, want /api/v1/series", request.path)
	}

	var payload wire.SeriesPayload
	if err := netutil.DecodeResponse(strings.NewReader(string(request.body)), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(payload.Series) != 1 || payload.Series[0].Metric != "dogship.requests" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEmptyBatchesSkipNetwork(t *testing.T) {
	handler := &recordingIntake{status: http.StatusAccepted}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	if err := client.SendLogs(context.Background(), nil); err != nil {
		t.Fatalf("SendLogs(nil): %v", err)
	}
	if err := client.SendSeries(context.Background(), []wire.MetricSeries{}); err != nil {
		t.Fatalf("SendSeries(empty): %v", err)
	}
	if got := handler.requestCount(); got != 0 {
		t.Fatalf("empty batches caused %d requests, want 0", got)
	}
}

func TestDeliveryError(t *testing.T) {
	handler := &recordingIntake{status: http.StatusForbidden, reply: `{"errors":["Forbidden"]}`}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	err := client.SendLogs(context.Background(), []wire.LogEvent{{Message: "x"}})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("error %T is not a *DeliveryError: %v", err, err)
	}
	if delivery.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", delivery.StatusCode)
	}
	if !strings.Contains(delivery.Body, "Forbidden") {
		t.Errorf("Body = %q, want the intake error text", delivery.Body)
	}
	if !strings.Contains(delivery.Error(), "/api/v2/logs") {
		t.Errorf("Error() = %q, want the endpoint", delivery.Error())
	}
}

func TestDeliveryErrorTruncatesBody(t *testing.T) {
	handler := &recordingIntake{
		status: http.StatusInternalServerError,
		reply:  strings.Repeat("x", 5000),
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	err := client.SendLogs(context.Background(), []wire.LogEvent{{Message: "x"}})

	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("error %T is not a *DeliveryError: %v", err, err)
	}
	if len(delivery.Body) >= 5000 {
		t.Fatalf("body excerpt not truncated: %d bytes", len(delivery.Body))
	}
	if !strings.HasSuffix(delivery.Body, "...(truncated)") {
		t.Errorf("excerpt missing truncation marker: %q", delivery.Body[len(delivery.Body)-32:])
	}
}

func TestGzipPayload(t *testing.T) {
	handler := &recordingIntake{status: http.StatusAccepted}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) {
		c.Compression = CompressionGzip
	})
	if err := client.SendLogs(context.Background(), []wire.LogEvent{{Message: "compressed"}}); err != nil {
		t.Fatalf("SendLogs: %v", err)
	}

	request := handler.lastRequest(t)
	if got := request.header.Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	reader, err := gzip.NewReader(strings.NewReader(string(request.body)))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	var decoded []wire.LogEvent
	if err := netutil.DecodeResponse(reader, &decoded); err != nil {
		t.Fatalf("decoding gzip payload: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Message != "compressed" {
		t.Errorf("payload = %+v", decoded)
	}
}

func TestZlibPayload(t *testing.T) {
	handler := &recordingIntake{status: http.StatusAccepted}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) {
		c.Compression = CompressionZlib
	})
	if err := client.SendSeries(context.Background(), []wire.MetricSeries{{
		Metric: "dogship.heartbeat",
		Kind:   wire.KindGauge,
		Points: []wire.Point{{Time: 1, Value: 1}},
	}}); err != nil {
		t.Fatalf("SendSeries: %v", err)
	}

	request := handler.lastRequest(t)
	if got := request.header.Get("Content-Encoding"); got != "deflate" {
		t.Fatalf("Content-Encoding = %q, want deflate", got)
	}
	reader, err := zlib.NewReader(strings.NewReader(string(request.body)))
	if err != nil {
		t.Fatalf("zlib reader: %v", err)
	}
	var payload wire.SeriesPayload
	if err := netutil.DecodeResponse(reader, &payload); err != nil {
		t.Fatalf("decoding zlib payload: %v", err)
	}
	if len(payload.Series) != 1 || payload.Series[0].Metric != "dogship.heartbeat" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{
		Site:   "datadoghq.eu",
		APIKey: testKey(t),
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.logsURL != "https://http-intake.logs.datadoghq.eu/api/v2/logs" {
		t.Errorf("logsURL = %s", client.logsURL)
	}
	if client.seriesURL != "https://api.datadoghq.eu/api/v1/series" {
		t.Errorf("seriesURL = %s", client.seriesURL)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{Logger: slog.Default()}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewClient(Config{APIKey: testKey(t)}); err == nil {
		t.Error("expected error for missing logger")
	}
	if _, err := NewClient(Config{
		Site:   "https://datadoghq.com",
		APIKey: testKey(t),
		Logger: slog.Default(),
	}); err == nil {
		t.Error("expected error for site with scheme")
	}
}
