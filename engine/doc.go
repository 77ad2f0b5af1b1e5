// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the client-side core of a Matrix chat client. It
// consumes a stream of [Command] values, performs the corresponding
// homeserver requests, and reports every outcome as a [Response].
//
// [Engine.Run] is the single dispatcher. Commands are handled in FIFO
// order; short request/response operations run inline on the
// dispatcher goroutine, while media resolution, message history
// fetches, and uploads run on worker goroutines that report back
// through the same response channel. Responses from different workers
// may interleave, but each command produces its responses in a fixed
// order.
//
// Mutable session state (credentials, the sync cursor, the timeline
// window, the directory cursor, the pending-join marker) lives behind
// a mutex. No lock is held across network I/O, and each cursor has a
// single writer:
//
//   - the sync cursor is written by sync and by authentication
//   - the timeline window is written by the pager and by authentication
//   - the directory cursor is written by directory search
//   - the pending-join marker is written by join and cleared by sync
//
// Failures never stop the dispatcher. Every failed operation is
// reported as exactly one [*Failure] carrying the command family and
// an [ErrorKind] from [Classify], and the next command is processed
// normally.
package engine
