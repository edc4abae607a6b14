// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of a dogship config file. It mirrors
// [Config] with durations as strings ("500ms", "2s") since YAML has
// no duration type.
type fileConfig struct {
	Service          string   `yaml:"service"`
	Env              string   `yaml:"env"`
	Version          string   `yaml:"version"`
	APIKey           string   `yaml:"api_key"`
	APIKeyFile       string   `yaml:"api_key_file"`
	Site             string   `yaml:"site"`
	Hostname         string   `yaml:"hostname"`
	Source           string   `yaml:"source"`
	Tags             []string `yaml:"tags"`
	Integrations     []string `yaml:"integrations"`
	LogFlushInterval string   `yaml:"log_flush_interval"`
	SendTimeout      string   `yaml:"send_timeout"`
	Compression      string   `yaml:"compression"`
	LogsURL          string   `yaml:"logs_url"`
	SeriesURL        string   `yaml:"series_url"`
}

// ConfigFromFile loads a [Config] from a YAML file. File values fill
// the explicit layer of the resolution order: the caller can still
// override individual fields on the returned Config before passing it
// to [New], and anything the file leaves empty falls through to
// environment variables and defaults as usual.
func ConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("client: reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("client: parsing %s: %w", path, err)
	}

	config := Config{
		Service:      file.Service,
		Env:          file.Env,
		Version:      file.Version,
		APIKey:       file.APIKey,
		APIKeyFile:   file.APIKeyFile,
		Site:         file.Site,
		Hostname:     file.Hostname,
		Source:       file.Source,
		Tags:         file.Tags,
		Integrations: file.Integrations,
		Compression:  file.Compression,
		LogsURL:      file.LogsURL,
		SeriesURL:    file.SeriesURL,
	}

	if file.LogFlushInterval != "" {
		interval, err := time.ParseDuration(file.LogFlushInterval)
		if err != nil {
			return Config{}, fmt.Errorf("client: %s: log_flush_interval: %w", path, err)
		}
		config.LogFlushInterval = interval
	}
	if file.SendTimeout != "" {
		timeout, err := time.ParseDuration(file.SendTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("client: %s: send_timeout: %w", path, err)
		}
		config.SendTimeout = timeout
	}

	return config, nil
}
