// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reading for dogship.
//
// Every HTTP body read in the module goes through these helpers so that
// a misbehaving peer cannot cause unbounded memory allocation: the
// intake client reads error response excerpts with ErrorExcerpt, the
// mock intake server reads request payloads with ReadBounded, and
// tests decode query responses with DecodeResponse.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON response body reads: 4 MB.
// Intake responses are tiny (empty on success, a short JSON error
// otherwise) and mock query responses are bounded by the mock's
// storage cap, so the limit never interferes with normal operation.
const MaxResponseSize int64 = 4 << 20

// errorExcerptSize is how much of an error response body is kept for
// diagnostic messages. Intake error bodies are one-line JSON.
const errorExcerptSize = 2048

// ErrBodyTooLarge is returned by ReadBounded when a body exceeds the
// caller's limit.
var ErrBodyTooLarge = errors.New("netutil: body exceeds size limit")

// ReadBounded reads body to EOF, failing with ErrBodyTooLarge if it
// exceeds limit bytes. Use for request bodies where an oversized
// payload must be rejected rather than truncated.
func ReadBounded(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("netutil: reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// DecodeResponse reads a JSON response body (up to MaxResponseSize
// bytes) and decodes it into v. Replaces the io.ReadAll +
// json.Unmarshal pattern.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("netutil: reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorExcerpt reads the start of an HTTP error response body and
// returns it as a string for diagnostic error messages. Bodies longer
// than the excerpt size are truncated with a trailing marker. Read
// errors are silently ignored since a partial or empty body is still
// useful in an error message.
func ErrorExcerpt(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, errorExcerptSize+1))
	if len(data) > errorExcerptSize {
		return string(data[:errorExcerptSize]) + "...(truncated)"
	}
	return string(data)
}
