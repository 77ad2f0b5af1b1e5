// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

// MaxMediaSize bounds downloads and thumbnails. Larger bodies fail with
// netutil.ErrTooLarge.
const MaxMediaSize int64 = 100 << 20

// UploadMedia uploads content to the homeserver's media repository.
// filename, when non-empty, is sent as the filename query parameter.
// Returns the content URI (e.g., "mxc://example.org/abc123").
func (s *DirectSession) UploadMedia(ctx context.Context, contentType, filename string, body io.Reader) (ref.ContentURI, error) {
	var query url.Values
	if filename != "" {
		query = url.Values{"filename": {filename}}
	}
	responseBody, err := s.client.doRequestRaw(ctx, http.MethodPost,
		"/_matrix/media/v3/upload", s.accessToken, query, contentType, body)
	if err != nil {
		return ref.ContentURI{}, fmt.Errorf("messaging: media upload failed: %w", err)
	}

	var response UploadResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return ref.ContentURI{}, fmt.Errorf("%w: parse upload response: %w", ErrMalformedResponse, err)
	}
	contentURI, err := ref.ParseContentURI(response.ContentURI)
	if err != nil {
		return ref.ContentURI{}, fmt.Errorf("%w: upload content_uri: %v", ErrMalformedResponse, err)
	}
	return contentURI, nil
}

// DownloadMedia streams the content at uri into destination and returns
// its media type.
func (s *DirectSession) DownloadMedia(ctx context.Context, uri ref.ContentURI, destination io.Writer) (string, error) {
	path := "/_matrix/media/v3/download/" + url.PathEscape(uri.Server()) + "/" + url.PathEscape(uri.MediaID())
	contentType, err := s.client.doStream(ctx, path, s.accessToken, nil, destination, MaxMediaSize)
	if err != nil {
		return "", fmt.Errorf("messaging: download %s failed: %w", uri, err)
	}
	return contentType, nil
}

// ThumbnailMedia streams a scaled thumbnail of uri into destination and
// returns its media type.
func (s *DirectSession) ThumbnailMedia(ctx context.Context, uri ref.ContentURI, width, height int, destination io.Writer) (string, error) {
	path := "/_matrix/media/v3/thumbnail/" + url.PathEscape(uri.Server()) + "/" + url.PathEscape(uri.MediaID())
	query := url.Values{
		"width":  {strconv.Itoa(width)},
		"height": {strconv.Itoa(height)},
		"method": {"scale"},
	}
	contentType, err := s.client.doStream(ctx, path, s.accessToken, query, destination, MaxMediaSize)
	if err != nil {
		return "", fmt.Errorf("messaging: thumbnail %s failed: %w", uri, err)
	}
	return contentType, nil
}
