// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"log/slog"

	"github.com/dogship/dogship/wire"
)

// Handler returns an slog.Handler that turns every record into a log
// event on this client: the level becomes the status, the message the
// message, and the record's attributes become "key:value" tags, with
// group names joined into dotted key prefixes. Correlation comes from
// the record's context like any other log call.
//
// The handler accepts every level; level filtering belongs to the
// host application's logger configuration. Install it standalone or
// fan out alongside an existing handler:
//
//	logger := slog.New(client.Handler())
func (c *Client) Handler() slog.Handler {
	return &logHandler{client: c}
}

// logHandler adapts the slog.Handler contract onto Client.Log.
// WithAttrs renders attributes to tags eagerly; WithGroup extends the
// key prefix for everything added afterwards.
type logHandler struct {
	client *Client
	prefix string   // dotted group path applied to subsequent keys
	tags   []string // tags accumulated from WithAttrs
}

// Enabled implements slog.Handler.
func (h *logHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	tags := make([]string, 0, len(h.tags)+record.NumAttrs())
	tags = append(tags, h.tags...)
	record.Attrs(func(attr slog.Attr) bool {
		tags = appendAttrTags(tags, h.prefix, attr)
		return true
	})
	h.client.Log(ctx, statusFromLevel(record.Level), record.Message, tags...)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	tags := make([]string, len(h.tags), len(h.tags)+len(attrs))
	copy(tags, h.tags)
	for _, attr := range attrs {
		tags = appendAttrTags(tags, h.prefix, attr)
	}
	return &logHandler{client: h.client, prefix: h.prefix, tags: tags}
}

// WithGroup implements slog.Handler.
func (h *logHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	prefix := name
	if h.prefix != "" {
		prefix = h.prefix + "." + name
	}
	return &logHandler{client: h.client, prefix: prefix, tags: h.tags}
}

// appendAttrTags renders an attribute to "key:value" tags, recursing
// into group values with the group name folded into the key prefix.
// Empty attributes and empty-keyed inline groups follow the slog
// conventions: the former are dropped, the latter inline their
// members without extending the prefix.
func appendAttrTags(tags []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()

	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			if groupPrefix != "" {
				groupPrefix += "." + attr.Key
			} else {
				groupPrefix = attr.Key
			}
		}
		for _, member := range attr.Value.Group() {
			tags = appendAttrTags(tags, groupPrefix, member)
		}
		return tags
	}

	if attr.Equal(slog.Attr{}) {
		return tags
	}

	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	return append(tags, key+":"+attr.Value.String())
}

// statusFromLevel maps slog levels onto the four intake statuses.
// Levels between the standard ones round down, so LevelInfo+2 is
// still "info".
func statusFromLevel(level slog.Level) wire.Status {
	switch {
	case level >= slog.LevelError:
		return wire.StatusError
	case level >= slog.LevelWarn:
		return wire.StatusWarn
	case level >= slog.LevelInfo:
		return wire.StatusInfo
	default:
		return wire.StatusDebug
	}
}
