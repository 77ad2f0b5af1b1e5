// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/chatcore/lib/clock"
	"github.com/bureau-foundation/chatcore/lib/codec"
	"github.com/bureau-foundation/chatcore/lib/ref"
)

// Variant separates the renditions of one content URI in the cache.
type Variant string

const (
	// VariantThumbnail is a scaled rendition for message previews.
	VariantThumbnail Variant = "thumbnail"
	// VariantDownload is the original content.
	VariantDownload Variant = "download"
	// VariantAvatar is a scaled rendition of a user or room avatar.
	VariantAvatar Variant = "avatar"
)

func (v Variant) valid() bool {
	switch v {
	case VariantThumbnail, VariantDownload, VariantAvatar:
		return true
	}
	return false
}

// metadataSuffix is appended to a cache file's path for its sidecar.
const metadataSuffix = ".meta"

// Metadata is the CBOR sidecar written next to each cached file.
type Metadata struct {
	URI         ref.ContentURI `cbor:"uri"`
	Variant     Variant        `cbor:"variant"`
	ContentType string         `cbor:"content_type,omitempty"`
	Size        int64          `cbor:"size"`
	FetchedAt   time.Time      `cbor:"fetched_at"`
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Directory is the cache root. Created if missing.
	Directory string
	// Clock stamps FetchedAt. If nil, clock.Real() is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Cache is a content-addressed media store on local disk. Safe for
// concurrent use; concurrent stores of the same entry both succeed and
// the last rename wins.
type Cache struct {
	root   string
	clock  clock.Clock
	logger *slog.Logger
}

// NewCache creates the cache root and returns a Cache over it.
func NewCache(config CacheConfig) (*Cache, error) {
	if config.Directory == "" {
		return nil, fmt.Errorf("media: cache directory is required")
	}
	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, fmt.Errorf("media: creating cache directory: %w", err)
	}

	cacheClock := config.Clock
	if cacheClock == nil {
		cacheClock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		root:   config.Directory,
		clock:  cacheClock,
		logger: logger,
	}, nil
}

// Directory returns the cache root.
func (c *Cache) Directory() string {
	return c.root
}

// Path returns where the variant of uri is (or would be) stored.
func (c *Cache) Path(uri ref.ContentURI, variant Variant) string {
	return filepath.Join(c.root, string(variant), cacheKey(uri))
}

// Lookup returns the stored path for the variant of uri, if present.
func (c *Cache) Lookup(uri ref.ContentURI, variant Variant) (string, bool) {
	path := c.Path(uri, variant)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Store writes the variant of uri by calling fill with a temporary file,
// then renames it into place and records the metadata sidecar. fill
// returns the content type of what it wrote. On any error nothing is
// left at the final path.
func (c *Cache) Store(uri ref.ContentURI, variant Variant, fill func(io.Writer) (string, error)) (string, error) {
	if uri.IsZero() {
		return "", fmt.Errorf("media: cannot cache an empty content URI")
	}
	if !variant.valid() {
		return "", fmt.Errorf("media: unknown cache variant %q", variant)
	}

	finalPath := c.Path(uri, variant)
	directory := filepath.Dir(finalPath)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".fetch-*")
	if err != nil {
		return "", fmt.Errorf("media: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(temporaryPath)
		}
	}()

	counter := &countingWriter{writer: temporary}
	contentType, fillErr := fill(counter)
	closeErr := temporary.Close()
	if fillErr != nil {
		return "", fillErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("media: closing %s: %w", temporaryPath, closeErr)
	}

	if err := os.Rename(temporaryPath, finalPath); err != nil {
		return "", fmt.Errorf("media: committing %s: %w", finalPath, err)
	}
	committed = true

	metadata := Metadata{
		URI:         uri,
		Variant:     variant,
		ContentType: contentType,
		Size:        counter.written,
		FetchedAt:   c.clock.Now().UTC(),
	}
	// The media file is already usable. Thumbnails without a sidecar
	// are still served; downloads are fetched again.
	if err := c.writeMetadata(finalPath, metadata); err != nil {
		c.logger.Warn("writing media cache metadata failed",
			"path", finalPath,
			"error", err,
		)
	}

	c.logger.Debug("cached media",
		"uri", uri.String(),
		"variant", string(variant),
		"size", counter.written,
	)
	return finalPath, nil
}

// Metadata reads the sidecar of the variant of uri.
func (c *Cache) Metadata(uri ref.ContentURI, variant Variant) (*Metadata, error) {
	data, err := os.ReadFile(c.Path(uri, variant) + metadataSuffix)
	if err != nil {
		return nil, fmt.Errorf("media: reading metadata: %w", err)
	}
	var metadata Metadata
	if err := codec.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("media: decoding metadata: %w", err)
	}
	return &metadata, nil
}

// Remove deletes the variant of uri and its sidecar. Removing an
// absent entry is not an error.
func (c *Cache) Remove(uri ref.ContentURI, variant Variant) error {
	path := c.Path(uri, variant)
	for _, target := range []string{path, path + metadataSuffix} {
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("media: removing %s: %w", target, err)
		}
	}
	return nil
}

func (c *Cache) writeMetadata(path string, metadata Metadata) error {
	data, err := codec.Marshal(metadata)
	if err != nil {
		return err
	}
	temporary, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return err
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return err
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return err
	}
	if err := os.Rename(temporary.Name(), path+metadataSuffix); err != nil {
		os.Remove(temporary.Name())
		return err
	}
	return nil
}

type countingWriter struct {
	writer  io.Writer
	written int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.written += int64(n)
	return n, err
}
