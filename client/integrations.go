// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"sort"
	"strings"
)

// knownIntegrations is the fixed set of instrumentation target names
// accepted in Config.Integrations. Enabling an integration is a
// boundary declaration: the external tracer owns the actual patching,
// dogship only validates the names and records the intent.
var knownIntegrations = map[string]bool{
	"net/http":     true,
	"database/sql": true,
	"grpc":         true,
	"redis":        true,
	"kafka":        true,
	"gin":          true,
	"echo":         true,
	"chi":          true,
	"sqlx":         true,
	"mongo":        true,
}

// Integrations returns the known integration names, sorted.
func Integrations() []string {
	names := make([]string, 0, len(knownIntegrations))
	for name := range knownIntegrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateIntegrations rejects unknown integration names, listing
// both the offenders and the accepted set so a typo is a one-read
// fix.
func validateIntegrations(names []string) error {
	var unknown []string
	for _, name := range names {
		if !knownIntegrations[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("client: unknown integrations %v (known: %s)",
		unknown, strings.Join(Integrations(), ", "))
}
