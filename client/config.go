// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dogship/dogship/intake"
	"github.com/dogship/dogship/lib/clock"
	"github.com/dogship/dogship/lib/secret"
)

// Defaults applied by [New] when neither the Config field nor its
// environment variable provides a value.
const (
	DefaultLogFlushInterval = 500 * time.Millisecond
	DefaultSendTimeout      = 2 * time.Second
	DefaultSource           = "go"
)

// Config holds the parameters for creating a [Client]. Resolution
// order for each field is explicit value, then environment variable,
// then default, evaluated once inside [New]. There is no implicit
// global configuration.
//
// Service, Env, Version, and an API key are required; everything else
// has a usable default.
type Config struct {
	// Service is the service name applied to every log event and
	// metric series. Environment fallback: DD_SERVICE.
	Service string

	// Env is the deployment environment ("prod", "staging").
	// Environment fallback: DD_ENV.
	Env string

	// Version is the deployed application version. Environment
	// fallback: DD_VERSION.
	Version string

	// APIKey is the intake API key. Environment fallback:
	// DD_API_KEY. The resolved key is moved into mmap-backed memory
	// (locked against swap, excluded from core dumps) immediately;
	// the Config string remains on the heap briefly until the GC
	// collects it.
	APIKey string

	// APIKeyFile is a path to a file holding the API key ("-" reads
	// standard input). Consulted when APIKey is empty, before the
	// environment fallback.
	APIKeyFile string

	// Site is the intake site domain. Environment fallback:
	// DD_SITE. Default: datadoghq.com.
	Site string

	// Hostname identifies the emitting host on log events.
	// Environment fallback: DD_HOSTNAME. Default: os.Hostname().
	Hostname string

	// Source is the ddsource attribute on log events, which selects
	// the intake processing pipeline. Default: "go".
	Source string

	// Tags are extra global tags ("team:payments") applied to every
	// log event and metric series alongside the service/env/version
	// tags.
	Tags []string

	// Integrations names the instrumentation targets the host
	// application wants enabled. Unknown names are a configuration
	// error; see [Integrations] for the known set.
	Integrations []string

	// LogFlushInterval is how often buffered log events are flushed
	// in the background. Default: 500ms. Metrics have no background
	// flush; they are sent by Flush and Shutdown.
	LogFlushInterval time.Duration

	// SendTimeout bounds each intake request. Default: 2s.
	SendTimeout time.Duration

	// Compression selects the intake payload encoding: "none",
	// "gzip", or "zlib". Environment fallback: DD_COMPRESSION.
	// Default: none.
	Compression string

	// LogsURL and SeriesURL override the intake endpoint URLs
	// derived from Site. Used by tests and by deployments that
	// route through a local proxy or mock intake.
	LogsURL   string
	SeriesURL string

	// Correlator extracts APM span identifiers from a context for
	// log correlation. Default: [ContextCorrelator], which reads
	// identifiers installed by [WithSpan].
	Correlator Correlator

	// Logger receives operational messages (flush failures,
	// delivery debug). Required.
	Logger *slog.Logger

	// Clock provides time for flush scheduling and metric
	// timestamps. Production callers leave it nil to get the real
	// clock; tests pass clock.Fake() for deterministic control.
	Clock clock.Clock

	// HTTPClient overrides the intake HTTP client. Leave nil for
	// the default keep-alive-free client with SendTimeout.
	HTTPClient *http.Client
}

// resolved is a Config after precedence resolution and validation.
// All fields are populated and the API key lives in locked memory.
type resolved struct {
	service          string
	env              string
	version          string
	apiKey           *secret.Buffer
	site             string
	hostname         string
	source           string
	tags             []string
	integrations     []string
	logFlushInterval time.Duration
	sendTimeout      time.Duration
	compression      intake.Compression
	logsURL          string
	seriesURL        string
	correlator       Correlator
	logger           *slog.Logger
	clk              clock.Clock
	httpClient       *http.Client
}

// orEnv returns the explicit value when non-empty, otherwise the
// value of the named environment variable. An empty environment
// variable counts as unset.
func orEnv(explicit, envName string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(envName)
}

// resolve applies the explicit > environment > default precedence and
// validates the result. All configuration problems are reported
// together.
func (c Config) resolve() (*resolved, error) {
	var errs []error

	r := &resolved{
		tags:         c.Tags,
		integrations: c.Integrations,
		logsURL:      c.LogsURL,
		seriesURL:    c.SeriesURL,
		correlator:   c.Correlator,
		logger:       c.Logger,
		clk:          c.Clock,
		httpClient:   c.HTTPClient,
	}

	r.service = orEnv(c.Service, "DD_SERVICE")
	if r.service == "" {
		errs = append(errs, fmt.Errorf("client: Service is required (set Config.Service or DD_SERVICE)"))
	}
	r.env = orEnv(c.Env, "DD_ENV")
	if r.env == "" {
		errs = append(errs, fmt.Errorf("client: Env is required (set Config.Env or DD_ENV)"))
	}
	r.version = orEnv(c.Version, "DD_VERSION")
	if r.version == "" {
		errs = append(errs, fmt.Errorf("client: Version is required (set Config.Version or DD_VERSION)"))
	}

	apiKey, err := c.resolveAPIKey()
	if err != nil {
		errs = append(errs, err)
	}
	r.apiKey = apiKey

	r.site = orEnv(c.Site, "DD_SITE")
	if r.site == "" {
		r.site = intake.DefaultSite
	}

	r.hostname = orEnv(c.Hostname, "DD_HOSTNAME")
	if r.hostname == "" {
		// A host with no resolvable name still ships events; they
		// just carry no hostname field.
		r.hostname, _ = os.Hostname()
	}

	r.source = c.Source
	if r.source == "" {
		r.source = DefaultSource
	}

	r.logFlushInterval = c.LogFlushInterval
	if r.logFlushInterval == 0 {
		r.logFlushInterval = DefaultLogFlushInterval
	}
	if r.logFlushInterval < 0 {
		errs = append(errs, fmt.Errorf("client: LogFlushInterval must not be negative, got %v", c.LogFlushInterval))
	}

	r.sendTimeout = c.SendTimeout
	if r.sendTimeout == 0 {
		r.sendTimeout = DefaultSendTimeout
	}
	if r.sendTimeout < 0 {
		errs = append(errs, fmt.Errorf("client: SendTimeout must not be negative, got %v", c.SendTimeout))
	}

	compression, err := intake.ParseCompression(orEnv(c.Compression, "DD_COMPRESSION"))
	if err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}
	r.compression = compression

	if err := validateIntegrations(c.Integrations); err != nil {
		errs = append(errs, err)
	}

	if r.correlator == nil {
		r.correlator = ContextCorrelator{}
	}
	if r.logger == nil {
		errs = append(errs, fmt.Errorf("client: Logger is required"))
	}
	if r.clk == nil {
		r.clk = clock.Real()
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// resolveAPIKey resolves the API key from, in order, the explicit
// Config field, the key file, and DD_API_KEY.
func (c Config) resolveAPIKey() (*secret.Buffer, error) {
	if c.APIKey != "" {
		key, err := secret.NewFromBytes([]byte(c.APIKey))
		if err != nil {
			return nil, fmt.Errorf("client: protecting API key: %w", err)
		}
		return key, nil
	}
	if c.APIKeyFile != "" {
		key, err := secret.ReadFromPath(c.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("client: reading API key file: %w", err)
		}
		return key, nil
	}
	if env := os.Getenv("DD_API_KEY"); env != "" {
		key, err := secret.NewFromBytes([]byte(env))
		if err != nil {
			return nil, fmt.Errorf("client: protecting API key: %w", err)
		}
		return key, nil
	}
	return nil, fmt.Errorf("client: an API key is required (set Config.APIKey, Config.APIKeyFile, or DD_API_KEY)")
}
