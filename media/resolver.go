// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

// Fetcher retrieves media from a homeserver. messaging.DirectSession
// satisfies it.
type Fetcher interface {
	DownloadMedia(ctx context.Context, uri ref.ContentURI, destination io.Writer) (string, error)
	ThumbnailMedia(ctx context.Context, uri ref.ContentURI, width, height int, destination io.Writer) (string, error)
}

// Resolver turns content URIs into local file paths, fetching through
// the cache.
type Resolver struct {
	cache         *Cache
	thumbnailSize int
}

// NewResolver returns a Resolver. thumbnailSize is the width and height
// requested for thumbnails and avatars.
func NewResolver(cache *Cache, thumbnailSize int) *Resolver {
	return &Resolver{cache: cache, thumbnailSize: thumbnailSize}
}

// Cache returns the underlying cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Thumbnail returns the local path of a scaled rendition of uri.
func (r *Resolver) Thumbnail(ctx context.Context, fetcher Fetcher, uri ref.ContentURI) (string, error) {
	return r.scaled(ctx, fetcher, uri, VariantThumbnail)
}

// Avatar returns the local path of a scaled rendition of an avatar URI.
func (r *Resolver) Avatar(ctx context.Context, fetcher Fetcher, uri ref.ContentURI) (string, error) {
	return r.scaled(ctx, fetcher, uri, VariantAvatar)
}

// Download returns the local path and metadata of the original content
// of uri. A cached download whose sidecar is missing or unreadable is
// evicted and fetched again, so the content type is always known.
func (r *Resolver) Download(ctx context.Context, fetcher Fetcher, uri ref.ContentURI) (string, *Metadata, error) {
	if path, ok := r.cache.Lookup(uri, VariantDownload); ok {
		metadata, err := r.cache.Metadata(uri, VariantDownload)
		if err == nil {
			return path, metadata, nil
		}
		if err := r.cache.Remove(uri, VariantDownload); err != nil {
			return "", nil, err
		}
	}
	path, err := r.cache.Store(uri, VariantDownload, func(destination io.Writer) (string, error) {
		return fetcher.DownloadMedia(ctx, uri, destination)
	})
	if err != nil {
		return "", nil, fmt.Errorf("media: resolving %s: %w", uri, err)
	}
	metadata, err := r.cache.Metadata(uri, VariantDownload)
	if err != nil {
		return "", nil, err
	}
	return path, metadata, nil
}

func (r *Resolver) scaled(ctx context.Context, fetcher Fetcher, uri ref.ContentURI, variant Variant) (string, error) {
	if path, ok := r.cache.Lookup(uri, variant); ok {
		return path, nil
	}
	path, err := r.cache.Store(uri, variant, func(destination io.Writer) (string, error) {
		return fetcher.ThumbnailMedia(ctx, uri, r.thumbnailSize, r.thumbnailSize, destination)
	})
	if err != nil {
		return "", fmt.Errorf("media: resolving %s %s: %w", variant, uri, err)
	}
	return path, nil
}
