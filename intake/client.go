// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Package intake is the HTTP transport to the Datadog intake: log
// batches to the v2 logs endpoint, metric batches to the v1 series
// endpoint. It knows nothing about batching policy; callers hand it
// complete batches and it performs exactly one POST per batch.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dogship/dogship/lib/netutil"
	"github.com/dogship/dogship/lib/secret"
	"github.com/dogship/dogship/wire"
)

// DefaultSite is the intake site for the US1 region.
const DefaultSite = "datadoghq.com"

// defaultTimeout bounds each intake request when the config does not
// override it. Two seconds is generous for an intake POST; exceeding
// it means the intake is unresponsive and the batch should be dropped
// rather than blocking the flush loop.
const defaultTimeout = 2 * time.Second

// Config holds the parameters for creating a [Client].
type Config struct {
	// Site is the intake site domain ("datadoghq.com",
	// "datadoghq.eu", "us3.datadoghq.com"). Defaults to
	// [DefaultSite].
	Site string

	// APIKey authenticates every request via the DD-API-KEY header.
	// Required. The client reads the buffer on each request and
	// never copies the key onto the heap beyond the header itself.
	APIKey *secret.Buffer

	// Timeout bounds each request. Defaults to 2s.
	Timeout time.Duration

	// Compression selects the payload encoding. Defaults to
	// CompressionNone.
	Compression Compression

	// Logger receives delivery debug messages.
	Logger *slog.Logger

	// HTTPClient overrides the default HTTP client. Tests use this
	// to point at an httptest server; production callers leave it
	// nil to get a keep-alive-free client with the configured
	// timeout.
	HTTPClient *http.Client

	// LogsURL and SeriesURL override the endpoint URLs derived from
	// Site. Used by tests and by deployments that route through a
	// local proxy.
	LogsURL   string
	SeriesURL string
}

// Client posts telemetry batches to the intake endpoints.
//
// Each batch is one POST on a fresh connection: keep-alives are
// disabled because flushes are sparse enough that a pooled connection
// would usually have idled out anyway, and a half-closed pooled
// connection turns into a flush error.
type Client struct {
	logsURL     string
	seriesURL   string
	apiKey      *secret.Buffer
	compression Compression
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a client from config. Returns an error if the
// API key or logger is missing or the site does not look like a bare
// domain.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == nil || config.APIKey.Len() == 0 {
		return nil, fmt.Errorf("intake: APIKey is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("intake: Logger is required")
	}

	site := config.Site
	if site == "" {
		site = DefaultSite
	}
	if strings.ContainsAny(site, "/:") {
		return nil, fmt.Errorf("intake: Site must be a bare domain like %q, got %q", DefaultSite, site)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		}
	}

	logsURL := config.LogsURL
	if logsURL == "" {
		logsURL = fmt.Sprintf("https://http-intake.logs.%s/api/v2/logs", site)
	}
	seriesURL := config.SeriesURL
	if seriesURL == "" {
		seriesURL = fmt.Sprintf("https://api.%s/api/v1/series", site)
	}

	return &Client{
		logsURL:     logsURL,
		seriesURL:   seriesURL,
		apiKey:      config.APIKey,
		compression: config.Compression,
		httpClient:  httpClient,
		logger:      config.Logger,
	}, nil
}

// SendLogs posts a batch of log events as a JSON array to the v2
// logs endpoint. A nil or empty batch is a no-op.
func (c *Client) SendLogs(ctx context.Context, events []wire.LogEvent) error {
	if len(events) == 0 {
		return nil
	}
	return c.post(ctx, c.logsURL, events, len(events))
}

// SendSeries posts a batch of metric series wrapped in the v1 series
// envelope. A nil or empty batch is a no-op.
func (c *Client) SendSeries(ctx context.Context, series []wire.MetricSeries) error {
	if len(series) == 0 {
		return nil
	}
	return c.post(ctx, c.seriesURL, wire.SeriesPayload{Series: series}, len(series))
}

// post performs one intake POST. Any response status outside 2xx is
// returned as a *DeliveryError carrying an excerpt of the response
// body.
func (c *Client) post(ctx context.Context, endpoint string, payload any, count int) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("intake: encoding payload: %w", err)
	}

	compressed, err := c.compression.encode(encoded)
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("intake: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("DD-API-KEY", c.apiKey.String())
	if encoding := c.compression.contentEncoding(); encoding != "" {
		request.Header.Set("Content-Encoding", encoding)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("intake: posting to %s: %w", endpoint, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &DeliveryError{
			Endpoint:   endpoint,
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorExcerpt(response.Body),
		}
	}

	c.logger.Debug("batch delivered",
		"endpoint", endpoint,
		"events", count,
		"bytes", len(compressed),
		"status", response.StatusCode,
	)
	return nil
}

// DeliveryError reports an intake response with a non-2xx status.
// The body excerpt is bounded; intake error responses are small JSON
// documents but the excerpt guards against surprises.
type DeliveryError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("intake: %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("intake: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
