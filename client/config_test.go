// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dogship/dogship/intake"
)

// clearTelemetryEnv blanks every environment variable the resolver
// consults so tests are insulated from the host environment.
func clearTelemetryEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DD_SERVICE", "DD_ENV", "DD_VERSION", "DD_API_KEY",
		"DD_SITE", "DD_HOSTNAME", "DD_COMPRESSION",
	} {
		t.Setenv(name, "")
	}
}

func baseConfig() Config {
	return Config{
		Service: "checkout",
		Env:     "test",
		Version: "1.2.3",
		APIKey:  "0123456789abcdef0123456789abcdef",
		Logger:  slog.Default(),
	}
}

func mustResolve(t *testing.T, config Config) *resolved {
	t.Helper()
	r, err := config.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	t.Cleanup(func() { r.apiKey.Close() })
	return r
}

func TestResolveExplicitBeatsEnvironment(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("DD_SERVICE", "env-service")
	t.Setenv("DD_SITE", "datadoghq.eu")

	r := mustResolve(t, baseConfig())
	if r.service != "checkout" {
		t.Errorf("service = %q, want the explicit value", r.service)
	}
	// Fields the config leaves empty fall through to the environment.
	if r.site != "datadoghq.eu" {
		t.Errorf("site = %q, want the environment value", r.site)
	}
}

func TestResolveEnvironmentFallback(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("DD_SERVICE", "env-service")
	t.Setenv("DD_ENV", "env-env")
	t.Setenv("DD_VERSION", "9.9.9")
	t.Setenv("DD_API_KEY", "abcdef0123456789abcdef0123456789")
	t.Setenv("DD_HOSTNAME", "env-host")

	r := mustResolve(t, Config{Logger: slog.Default()})
	if r.service != "env-service" || r.env != "env-env" || r.version != "9.9.9" {
		t.Errorf("identity = %q/%q/%q, want environment values", r.service, r.env, r.version)
	}
	if r.apiKey.String() != "abcdef0123456789abcdef0123456789" {
		t.Error("API key not taken from DD_API_KEY")
	}
	if r.hostname != "env-host" {
		t.Errorf("hostname = %q, want env-host", r.hostname)
	}
}

func TestResolveDefaults(t *testing.T) {
	clearTelemetryEnv(t)

	r := mustResolve(t, baseConfig())
	if r.site != intake.DefaultSite {
		t.Errorf("site = %q, want %q", r.site, intake.DefaultSite)
	}
	if r.source != DefaultSource {
		t.Errorf("source = %q, want %q", r.source, DefaultSource)
	}
	if r.logFlushInterval != DefaultLogFlushInterval {
		t.Errorf("logFlushInterval = %v, want %v", r.logFlushInterval, DefaultLogFlushInterval)
	}
	if r.sendTimeout != DefaultSendTimeout {
		t.Errorf("sendTimeout = %v, want %v", r.sendTimeout, DefaultSendTimeout)
	}
	if r.compression != intake.CompressionNone {
		t.Errorf("compression = %v, want none", r.compression)
	}
	if r.correlator == nil || r.clk == nil {
		t.Error("correlator and clock must have defaults")
	}
	hostname, _ := os.Hostname()
	if r.hostname != hostname {
		t.Errorf("hostname = %q, want os.Hostname() %q", r.hostname, hostname)
	}
}

func TestResolveMissingRequiredFields(t *testing.T) {
	clearTelemetryEnv(t)

	_, err := Config{}.resolve()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"DD_SERVICE", "DD_ENV", "DD_VERSION", "DD_API_KEY", "Logger"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestResolveAPIKeySources(t *testing.T) {
	clearTelemetryEnv(t)

	keyPath := filepath.Join(t.TempDir(), "api-key")
	if err := os.WriteFile(keyPath, []byte("file-key-0123456789abcdef\n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	fromFile := baseConfig()
	fromFile.APIKey = ""
	fromFile.APIKeyFile = keyPath
	r := mustResolve(t, fromFile)
	if r.apiKey.String() != "file-key-0123456789abcdef" {
		t.Errorf("file key = %q, want trimmed file contents", r.apiKey.String())
	}

	// An explicit key wins over the file.
	explicit := baseConfig()
	explicit.APIKeyFile = keyPath
	r = mustResolve(t, explicit)
	if r.apiKey.String() != explicit.APIKey {
		t.Error("explicit API key did not take precedence over the file")
	}
}

func TestResolveRejectsBadValues(t *testing.T) {
	clearTelemetryEnv(t)

	negative := baseConfig()
	negative.LogFlushInterval = -time.Second
	if _, err := negative.resolve(); err == nil || !strings.Contains(err.Error(), "LogFlushInterval") {
		t.Errorf("negative interval: %v", err)
	}

	compressed := baseConfig()
	compressed.Compression = "brotli"
	if _, err := compressed.resolve(); err == nil || !strings.Contains(err.Error(), "brotli") {
		t.Errorf("unknown compression: %v", err)
	}

	integrated := baseConfig()
	integrated.Integrations = []string{"net/http", "nope"}
	if _, err := integrated.resolve(); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("unknown integration: %v", err)
	}
}

func TestConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dogship.yaml")
	contents := `
service: checkout
env: prod
version: 1.2.3
api_key_file: /run/secrets/dd-api-key
site: datadoghq.eu
source: go
tags:
  - team:payments
integrations:
  - net/http
  - redis
log_flush_interval: 250ms
send_timeout: 5s
compression: gzip
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	config, err := ConfigFromFile(path)
	if err != nil {
		t.Fatalf("ConfigFromFile: %v", err)
	}
	if config.Service != "checkout" || config.Env != "prod" || config.Version != "1.2.3" {
		t.Errorf("identity = %q/%q/%q", config.Service, config.Env, config.Version)
	}
	if config.APIKeyFile != "/run/secrets/dd-api-key" {
		t.Errorf("APIKeyFile = %q", config.APIKeyFile)
	}
	if config.Site != "datadoghq.eu" {
		t.Errorf("Site = %q", config.Site)
	}
	if len(config.Tags) != 1 || config.Tags[0] != "team:payments" {
		t.Errorf("Tags = %v", config.Tags)
	}
	if len(config.Integrations) != 2 {
		t.Errorf("Integrations = %v", config.Integrations)
	}
	if config.LogFlushInterval != 250*time.Millisecond {
		t.Errorf("LogFlushInterval = %v", config.LogFlushInterval)
	}
	if config.SendTimeout != 5*time.Second {
		t.Errorf("SendTimeout = %v", config.SendTimeout)
	}
	if config.Compression != "gzip" {
		t.Errorf("Compression = %q", config.Compression)
	}
}

func TestConfigFromFileErrors(t *testing.T) {
	if _, err := ConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("service: [unterminated"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := ConfigFromFile(badYAML); err == nil {
		t.Error("expected error for malformed YAML")
	}

	badDuration := filepath.Join(t.TempDir(), "duration.yaml")
	if err := os.WriteFile(badDuration, []byte("log_flush_interval: fast\n"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := ConfigFromFile(badDuration); err == nil || !strings.Contains(err.Error(), "log_flush_interval") {
		t.Errorf("bad duration: %v", err)
	}
}
