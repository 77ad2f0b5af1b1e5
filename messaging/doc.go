// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for chatcore's
// engine.
//
// [Client] is an unauthenticated Matrix client that handles password
// login, registration (User-Interactive Authentication with either the
// dummy stage or a registration token), and guest registration, each
// returning an authenticated [DirectSession]. Client holds the
// homeserver URL and HTTP transport.
//
// [DirectSession] wraps a Client with an access token for authenticated
// operations: profile lookups, sync, room messages with backward
// pagination, state events, membership (join, leave, members), read
// receipts, the public room directory with third-party protocols, and
// the media repository (upload, download, thumbnail). The access token
// is held in mmap-backed secret.Buffer memory and sent as the
// access_token query parameter on every request; callers must call
// Close to release it.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code and HTTP status code. [IsMatrixError] tests for a
// specific error code. Responses that are well-formed JSON but miss
// required fields wrap [ErrMalformedResponse]. Request URLs are built by
// string concatenation rather than url.URL to avoid double-encoding of
// path segments.
//
// Sync and message responses keep each event as raw JSON
// ([json.RawMessage]) so that callers decode events one at a time and
// one bad event cannot fail a whole batch.
package messaging
