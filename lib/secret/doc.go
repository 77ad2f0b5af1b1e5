// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds passwords and access tokens outside the Go heap.
//
// [Buffer] is backed by an anonymous mmap region that is locked into
// RAM (mlock) and excluded from core dumps (MADV_DONTDUMP). Close zeros,
// unlocks, and unmaps it; any later access panics.
//
// The chat engine keeps the session access token in a Buffer for the
// lifetime of a login, and the command-line driver reads passwords
// straight into one with [ReadFromPath].
//
// Depends on golang.org/x/sys/unix only.
package secret
