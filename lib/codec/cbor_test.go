// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

type cacheRecord struct {
	URI         ref.ContentURI `cbor:"uri"`
	ContentType string         `cbor:"content_type"`
	Size        int64          `cbor:"size"`
	FetchedAt   time.Time      `cbor:"fetched_at"`
}

func TestRoundTrip(t *testing.T) {
	original := cacheRecord{
		URI:         ref.MustParseContentURI("mxc://example.org/abc"),
		ContentType: "image/png",
		Size:        1234,
		FetchedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded cacheRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.URI != original.URI {
		t.Errorf("URI = %v, want %v", decoded.URI, original.URI)
	}
	if decoded.ContentType != original.ContentType || decoded.Size != original.Size {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
	if !decoded.FetchedAt.Equal(original.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", decoded.FetchedAt, original.FetchedAt)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"b": 2, "a": 1, "c": "three"}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal output differs between calls")
		}
	}
}

func TestUnmarshalAnyMapType(t *testing.T) {
	data, err := Marshal(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
}
