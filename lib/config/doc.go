// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for chatcore.
//
// Configuration is loaded from a single file specified by either the
// CHATCORE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Values not present in the file keep
// the defaults from [Default].
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${CHATCORE_CACHE}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Sync, Timeline, Directory, Media
//   - [Default] -- returns a Config with the client defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- rejects unusable sizes and timeouts
//
// This package depends on no other chatcore packages.
package config
