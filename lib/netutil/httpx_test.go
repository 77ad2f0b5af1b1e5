// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"next_batch":"s1"}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"next_batch":"s1"}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(&failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(bytes.NewReader([]byte(`{"errcode":"M_FORBIDDEN"}`))); got != `{"errcode":"M_FORBIDDEN"}` {
		t.Fatalf("got %q", got)
	}
	if got := ErrorBody(&failReader{}); got != "" {
		t.Fatalf("expected empty from failing reader, got %q", got)
	}
}

func TestCopyLimited(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		var destination bytes.Buffer
		written, err := CopyLimited(&destination, strings.NewReader("0123456789"), 10)
		if err != nil {
			t.Fatalf("CopyLimited: %v", err)
		}
		if written != 10 || destination.String() != "0123456789" {
			t.Errorf("written=%d content=%q", written, destination.String())
		}
	})

	t.Run("over limit", func(t *testing.T) {
		var destination bytes.Buffer
		_, err := CopyLimited(&destination, strings.NewReader("0123456789A"), 10)
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("read error", func(t *testing.T) {
		var destination bytes.Buffer
		if _, err := CopyLimited(&destination, &failReader{}, 10); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
