// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps provisional messages, builds transaction IDs, or
// records cache fetch times takes a Clock instead of calling time.Now
// directly. Production wiring uses Real(); tests use Fake() and move
// time explicitly with Advance, so timestamps in assertions are exact.
package clock
