// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds how much of an HTTP response body the client
// will read.
//
// JSON API responses (sync, messages, directory) are read whole with
// [ReadResponse], capped at [MaxResponseSize]. Media downloads are
// streamed to disk with [CopyLimited], capped at a caller-chosen size,
// so a misbehaving server cannot exhaust memory or fill the disk.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON API response body reads: 256 MB.
// An initial /sync for an account in thousands of rooms stays far below
// this; the limit only exists to stop a pathological response.
const MaxResponseSize int64 = 256 << 20

// ErrTooLarge is returned by CopyLimited when the source exceeds the
// limit.
var ErrTooLarge = errors.New("netutil: response body exceeds size limit")

// ReadResponse reads a JSON API response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an HTTP error response body and returns it as a string
// for diagnostic messages. Read errors are ignored; a partial body is
// still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}

// CopyLimited streams src into dst and fails with ErrTooLarge if src
// holds more than limit bytes. Returns the number of bytes written.
// dst may have received up to limit bytes when ErrTooLarge is returned;
// callers writing to a temporary file discard it.
func CopyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return written, fmt.Errorf("netutil: copying response body: %w", err)
	}
	if written > limit {
		return written, ErrTooLarge
	}
	return written, nil
}
