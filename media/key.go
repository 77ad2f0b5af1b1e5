// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

// cacheDomainKey is the BLAKE3 key for cache file names: the ASCII
// domain name zero-padded to 32 bytes. Changing it orphans every
// existing cache entry.
var cacheDomainKey = [32]byte{
	'c', 'h', 'a', 't', 'c', 'o', 'r', 'e', '.', 'm', 'e', 'd', 'i', 'a', '.', 'c',
	'a', 'c', 'h', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// cacheKey returns the hex file name for uri. The URI is hashed rather
// than used directly because media IDs are server-chosen and may be
// long or contain characters that are awkward in file names.
func cacheKey(uri ref.ContentURI) string {
	hasher, err := blake3.NewKeyed(cacheDomainKey[:])
	if err != nil {
		panic("media: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(uri.String()))
	return hex.EncodeToString(hasher.Sum(nil))
}
