// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for chatcore
// binaries.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// [Version] is set by hand for releases. Uninjected builds report
// "unknown" and "0.1.0-dev".
//
// [Info] formats the --version line, [Full] adds the Go toolchain and
// platform, and [UserAgent] is the User-Agent header the Matrix client
// sends on every request.
package version
