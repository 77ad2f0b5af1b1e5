// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

const contentURIScheme = "mxc://"

// ContentURI is a validated Matrix content URI
// (e.g., "mxc://example.org/SEsfnsuifSDFSSEF").
//
// Content URIs identify files in a homeserver's media repository. The
// server name and media ID map directly onto the download and thumbnail
// endpoints (/_matrix/media/v3/download/{server}/{mediaID}).
//
// ContentURI is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ContentURI struct {
	server  string
	mediaID string
}

// ParseContentURI validates and splits a raw mxc:// URI.
func ParseContentURI(raw string) (ContentURI, error) {
	if raw == "" {
		return ContentURI{}, fmt.Errorf("empty content URI")
	}
	if !strings.HasPrefix(raw, contentURIScheme) {
		return ContentURI{}, fmt.Errorf("content URI must start with %q: %q", contentURIScheme, raw)
	}
	remainder := raw[len(contentURIScheme):]
	server, mediaID, found := strings.Cut(remainder, "/")
	if !found {
		return ContentURI{}, fmt.Errorf("content URI missing media ID: %q", raw)
	}
	if server == "" {
		return ContentURI{}, fmt.Errorf("content URI has empty server name: %q", raw)
	}
	if mediaID == "" {
		return ContentURI{}, fmt.Errorf("content URI has empty media ID: %q", raw)
	}
	if strings.ContainsAny(mediaID, "/?#") {
		return ContentURI{}, fmt.Errorf("content URI media ID contains reserved characters: %q", raw)
	}
	return ContentURI{server: server, mediaID: mediaID}, nil
}

// MustParseContentURI is like ParseContentURI but panics on error.
func MustParseContentURI(raw string) ContentURI {
	c, err := ParseContentURI(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseContentURI(%q): %v", raw, err))
	}
	return c
}

// String returns the full mxc:// URI.
func (c ContentURI) String() string {
	if c.IsZero() {
		return ""
	}
	return contentURIScheme + c.server + "/" + c.mediaID
}

// Server returns the origin server name of the content.
func (c ContentURI) Server() string { return c.server }

// MediaID returns the opaque media identifier.
func (c ContentURI) MediaID() string { return c.mediaID }

// IsZero reports whether the ContentURI is the zero value.
func (c ContentURI) IsZero() bool { return c.server == "" && c.mediaID == "" }

// MarshalText implements encoding.TextMarshaler.
func (c ContentURI) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (c *ContentURI) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ContentURI{}
		return nil
	}
	parsed, err := ParseContentURI(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
