// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "strings"

// JoinTags joins tags into the comma-separated ddtags form used by
// the logs intake. Empty tags are skipped.
func JoinTags(tags []string) string {
	var b strings.Builder
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tag)
	}
	return b.String()
}

// UnifiedServiceTags builds the standard service:/env:/version: tag
// set that ties logs and metrics from one process together. Empty
// components are skipped so partial deployments still tag what they
// know.
func UnifiedServiceTags(service, env, version string) []string {
	tags := make([]string, 0, 3)
	if service != "" {
		tags = append(tags, "service:"+service)
	}
	if env != "" {
		tags = append(tags, "env:"+env)
	}
	if version != "" {
		tags = append(tags, "version:"+version)
	}
	return tags
}
