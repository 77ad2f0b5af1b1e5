// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable Matrix identifiers.
//
// Room IDs, user IDs, event IDs, and mxc:// content URIs arrive from the
// homeserver or from the caller as plain strings. They are parsed into
// these types at the boundary so that malformed identifiers are rejected
// before any request is built, and so that a room ID can never be passed
// where a user ID is expected.
//
// All types implement encoding.TextMarshaler and encoding.TextUnmarshaler,
// so they decode directly from JSON fields and map keys. An empty input
// decodes to the zero value; use IsZero to detect it.
package ref
