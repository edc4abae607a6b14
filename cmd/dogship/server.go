// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/dogship/dogship/lib/netutil"
	"github.com/dogship/dogship/wire"
)

// maxSubmitBodySize caps intake request bodies, before and after
// decompression. Real intake endpoints enforce a 5 MB payload limit;
// 8 MB gives the mock headroom for oversized-batch experiments while
// still bounding memory.
const maxSubmitBodySize int64 = 8 << 20

var errUnsupportedEncoding = errors.New("unsupported Content-Encoding")

// intakeServer is the HTTP surface of the mock intake. It accepts the
// same submissions the shipping client sends (JSON bodies, optional
// gzip or deflate Content-Encoding, DD-API-KEY header) and adds query
// endpoints so tests and humans can inspect what arrived.
type intakeServer struct {
	store   *mockStore
	apiKey  string
	logger  *slog.Logger
	started time.Time
}

// newIntakeServer creates the handler around store. When apiKey is
// non-empty, submissions must present exactly that key; otherwise any
// non-empty key is accepted. Panics if store or logger is nil.
func newIntakeServer(store *mockStore, apiKey string, logger *slog.Logger) *intakeServer {
	if store == nil {
		panic("intakeServer: store is required")
	}
	if logger == nil {
		panic("intakeServer: logger is required")
	}
	return &intakeServer{
		store:   store,
		apiKey:  apiKey,
		logger:  logger,
		started: time.Now(),
	}
}

// routes returns the mock's HTTP mux.
func (s *intakeServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/logs", s.handleLogs)
	mux.HandleFunc("/api/v1/series", s.handleSeries)
	mux.HandleFunc("/query/logs", s.handleQueryLogs)
	mux.HandleFunc("/query/series", s.handleQuerySeries)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/reset", s.handleReset)
	return mux
}

func (s *intakeServer) handleLogs(writer http.ResponseWriter, request *http.Request) {
	body, ok := s.acceptSubmission(writer, request)
	if !ok {
		return
	}

	var events []wire.LogEvent
	if err := json.Unmarshal(body, &events); err != nil {
		s.rejectJSON(writer, request, body, err)
		return
	}

	s.store.addLogs(events)
	s.logger.Info("log batch stored", "events", len(events), "bytes", len(body))

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusAccepted)
	io.WriteString(writer, "{}")
}

func (s *intakeServer) handleSeries(writer http.ResponseWriter, request *http.Request) {
	body, ok := s.acceptSubmission(writer, request)
	if !ok {
		return
	}

	var payload wire.SeriesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.rejectJSON(writer, request, body, err)
		return
	}

	s.store.addSeries(payload.Series)
	s.logger.Info("series batch stored", "series", len(payload.Series), "bytes", len(body))

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusAccepted)
	io.WriteString(writer, `{"status":"ok"}`)
}

// acceptSubmission performs the checks shared by both submission
// endpoints: POST only, API key, bounded body read, decompression.
// On failure it writes the error response and returns ok false.
func (s *intakeServer) acceptSubmission(writer http.ResponseWriter, request *http.Request) ([]byte, bool) {
	if request.Method != http.MethodPost {
		http.Error(writer, "use POST", http.StatusMethodNotAllowed)
		return nil, false
	}

	if !s.authorized(request) {
		s.logger.Warn("submission rejected: bad API key",
			"path", request.URL.Path,
			"remote_addr", request.RemoteAddr,
		)
		http.Error(writer, "missing or mismatched DD-API-KEY", http.StatusForbidden)
		return nil, false
	}

	body, err := netutil.ReadBounded(request.Body, maxSubmitBodySize)
	if err != nil {
		if errors.Is(err, netutil.ErrBodyTooLarge) {
			http.Error(writer, fmt.Sprintf("payload exceeds %d bytes", maxSubmitBodySize), http.StatusRequestEntityTooLarge)
		} else {
			http.Error(writer, "reading request body", http.StatusInternalServerError)
		}
		return nil, false
	}

	body, err = decodeSubmitBody(body, request.Header.Get("Content-Encoding"))
	if err != nil {
		switch {
		case errors.Is(err, errUnsupportedEncoding):
			http.Error(writer, err.Error(), http.StatusUnsupportedMediaType)
		case errors.Is(err, netutil.ErrBodyTooLarge):
			http.Error(writer, fmt.Sprintf("decompressed payload exceeds %d bytes", maxSubmitBodySize), http.StatusRequestEntityTooLarge)
		default:
			http.Error(writer, "decompressing request body: "+err.Error(), http.StatusBadRequest)
		}
		return nil, false
	}

	return body, true
}

// authorized checks the DD-API-KEY header. With no configured key the
// mock accepts any non-empty value, which keeps happy-path smoke tests
// free of key plumbing while still catching clients that forget the
// header entirely.
func (s *intakeServer) authorized(request *http.Request) bool {
	presented := request.Header.Get("DD-API-KEY")
	if presented == "" {
		return false
	}
	if s.apiKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.apiKey)) == 1
}

// decodeSubmitBody reverses the request's Content-Encoding. An empty
// encoding returns raw unchanged. Decompressed output is bounded by
// maxSubmitBodySize so a small compressed body cannot expand without
// limit in memory.
func decodeSubmitBody(raw []byte, encoding string) ([]byte, error) {
	var reader io.ReadCloser
	switch encoding {
	case "":
		return raw, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		reader = r
	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		reader = r
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedEncoding, encoding)
	}
	defer reader.Close()

	return netutil.ReadBounded(reader, maxSubmitBodySize)
}

// rejectJSON answers a malformed submission with a 400 carrying a
// short excerpt of what was received, which makes curl experiments
// self-diagnosing.
func (s *intakeServer) rejectJSON(writer http.ResponseWriter, request *http.Request, body []byte, err error) {
	s.logger.Warn("submission rejected: malformed JSON",
		"path", request.URL.Path,
		"error", err,
	)
	excerpt := netutil.ErrorExcerpt(bytes.NewReader(body))
	http.Error(writer, fmt.Sprintf("invalid JSON (%v): %s", err, excerpt), http.StatusBadRequest)
}

// logQueryResponse is the wire format for /query/logs results.
type logQueryResponse struct {
	Logs  []wire.LogEvent `json:"logs"`
	Count int             `json:"count"`
}

// seriesQueryResponse is the wire format for /query/series results.
type seriesQueryResponse struct {
	Series []wire.MetricSeries `json:"series"`
	Count  int                 `json:"count"`
}

// statusResponse reports operational stats plus stored counts for
// test assertions.
type statusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StoredLogs    int     `json:"stored_logs"`
	StoredSeries  int     `json:"stored_series"`
	LogBatches    uint64  `json:"log_batches"`
	SeriesBatches uint64  `json:"series_batches"`
	DroppedLogs   uint64  `json:"dropped_logs"`
	DroppedSeries uint64  `json:"dropped_series"`
}

func (s *intakeServer) handleQueryLogs(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "use GET", http.StatusMethodNotAllowed)
		return
	}

	query := request.URL.Query()
	matched := s.store.queryLogs(logFilter{
		service:   query.Get("service"),
		status:    query.Get("status"),
		substring: query.Get("substring"),
	})
	s.writeJSON(writer, logQueryResponse{Logs: matched, Count: len(matched)})
}

func (s *intakeServer) handleQuerySeries(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "use GET", http.StatusMethodNotAllowed)
		return
	}

	query := request.URL.Query()
	filter := seriesFilter{metric: query.Get("metric")}
	if kindParam := query.Get("type"); kindParam != "" {
		kind, err := wire.ParseMetricKind(kindParam)
		if err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		filter.kind = kind
	}

	matched := s.store.querySeries(filter)
	s.writeJSON(writer, seriesQueryResponse{Series: matched, Count: len(matched)})
}

func (s *intakeServer) handleStatus(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "use GET", http.StatusMethodNotAllowed)
		return
	}

	counts := s.store.counts()
	s.writeJSON(writer, statusResponse{
		UptimeSeconds: time.Since(s.started).Seconds(),
		StoredLogs:    counts.storedLogs,
		StoredSeries:  counts.storedSeries,
		LogBatches:    counts.logBatches,
		SeriesBatches: counts.seriesBatches,
		DroppedLogs:   counts.droppedLogs,
		DroppedSeries: counts.droppedSeries,
	})
}

func (s *intakeServer) handleReset(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "use POST", http.StatusMethodNotAllowed)
		return
	}

	s.store.reset()
	s.logger.Info("store reset")
	writer.WriteHeader(http.StatusNoContent)
}

func (s *intakeServer) writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}
