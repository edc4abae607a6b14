// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression selects the payload encoding for intake requests. The
// intake accepts uncompressed JSON, gzip, and zlib (sent as the
// "deflate" content encoding).
type Compression uint8

const (
	// CompressionNone sends payloads uncompressed. The default:
	// telemetry batches are small and compression mostly buys the
	// intake's bandwidth, not the application's.
	CompressionNone Compression = 0

	// CompressionGzip wraps payloads in gzip framing.
	CompressionGzip Compression = 1

	// CompressionZlib wraps payloads in zlib framing, advertised
	// over HTTP as Content-Encoding: deflate.
	CompressionZlib Compression = 2
)

// String returns the human-readable name of a compression mode.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression mode from its string
// representation. "deflate" is accepted as an alias for zlib,
// matching the HTTP content coding name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zlib", "deflate":
		return CompressionZlib, nil
	default:
		return 0, fmt.Errorf("unknown compression mode: %q", name)
	}
}

// contentEncoding returns the Content-Encoding header value for the
// mode, or "" when no header should be set.
func (c Compression) contentEncoding() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "deflate"
	default:
		return ""
	}
}

// encode compresses payload according to the mode. For
// CompressionNone, returns the input unchanged (no copy).
func (c Compression) encode(payload []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil

	case CompressionGzip:
		var compressed bytes.Buffer
		writer := gzip.NewWriter(&compressed)
		if _, err := writer.Write(payload); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		return compressed.Bytes(), nil

	case CompressionZlib:
		var compressed bytes.Buffer
		writer := zlib.NewWriter(&compressed)
		if _, err := writer.Write(payload); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		return compressed.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression mode: %d", uint8(c))
	}
}
