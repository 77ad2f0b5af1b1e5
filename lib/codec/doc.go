// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// JSON is the format of the Matrix client-server API and of the
// command-line driver's output. CBOR is used only for local files the
// client writes for itself, currently the media cache metadata
// sidecars. Encoding uses Core Deterministic Encoding (RFC 8949 §4.2),
// so the same record always produces identical bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types implementing encoding.TextMarshaler (ref.ContentURI, ref.RoomID)
// are written as CBOR text strings.
package codec
