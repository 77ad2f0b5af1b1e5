// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package media stores Matrix media on local disk and classifies
// attachments by content.
//
// [Cache] maps a content URI and a [Variant] (thumbnail, download,
// avatar) to a file path <dir>/<variant>/<hex>, where hex is a BLAKE3
// keyed hash of the URI. Files are written to a temporary name and
// renamed into place, so a reader never sees a partial file and two
// workers fetching the same URI cannot corrupt each other. Each file
// has a CBOR sidecar (<path>.meta) recording the URI, content type,
// size and fetch time.
//
// [Resolver] puts the cache in front of a [Fetcher] (the media half of
// an authenticated Matrix session): lookups hit the cache first and
// only fetch on a miss.
//
// [Classify] sniffs a file's MIME type from its bytes and picks the
// Matrix message type used to send it.
package media
