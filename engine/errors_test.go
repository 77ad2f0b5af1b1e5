// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"testing"

	"github.com/bureau-foundation/chatcore/lib/netutil"
	"github.com/bureau-foundation/chatcore/messaging"
)

func TestClassify(t *testing.T) {
	var syntaxErr error
	{
		var value any
		syntaxErr = json.Unmarshal([]byte("{"), &value)
	}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not authenticated", fmt.Errorf("sync: %w", ErrNotAuthenticated), KindAuth},
		{"invalid argument", invalid("room id", "x", errors.New("bad")), KindInvalid},
		{"unauthorized status", &messaging.MatrixError{Code: messaging.ErrCodeUnknown, StatusCode: 401}, KindAuth},
		{"forbidden", fmt.Errorf("wrapped: %w", &messaging.MatrixError{Code: messaging.ErrCodeForbidden, StatusCode: 403}), KindAuth},
		{"unknown token", &messaging.MatrixError{Code: messaging.ErrCodeUnknownToken, StatusCode: 401}, KindAuth},
		{"other matrix error", &messaging.MatrixError{Code: messaging.ErrCodeNotFound, StatusCode: 404}, KindServer},
		{"malformed response", fmt.Errorf("%w: missing field", messaging.ErrMalformedResponse), KindMalformed},
		{"json syntax", syntaxErr, KindMalformed},
		{"too large", fmt.Errorf("download: %w", netutil.ErrTooLarge), KindMalformed},
		{"local file", &fs.PathError{Op: "open", Path: "/missing", Err: fs.ErrNotExist}, KindLocalIO},
		{"connection", &url.Error{Op: "Get", URL: "https://example.org", Err: errors.New("connection refused")}, KindTransport},
		{"cancelled", fmt.Errorf("sync: %w", context.Canceled), KindTransport},
		{"unknown", errors.New("something else"), KindTransport},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.want {
				t.Errorf("Classify(%v) = %s, want %s", test.err, got, test.want)
			}
		})
	}
}

func TestFailure(t *testing.T) {
	cause := &messaging.MatrixError{Code: messaging.ErrCodeForbidden, Message: "nope", StatusCode: 403}
	failure := newFailure(FamilyJoinRoom, cause)

	if failure.Kind != KindAuth {
		t.Errorf("kind = %s", failure.Kind)
	}
	var matrixErr *messaging.MatrixError
	if !errors.As(failure, &matrixErr) || matrixErr != cause {
		t.Error("failure does not unwrap to its cause")
	}
	if !strings.Contains(failure.Error(), "join_room") || !strings.Contains(failure.Error(), "nope") {
		t.Errorf("Error() = %q", failure.Error())
	}

	encoded, err := json.Marshal(failure)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["family"] != "join_room" || decoded["kind"] != "auth" || !strings.Contains(decoded["error"], "M_FORBIDDEN") {
		t.Errorf("encoded = %s", encoded)
	}
}

func TestErrorKindString(t *testing.T) {
	if got := KindLocalIO.String(); got != "local_io" {
		t.Errorf("KindLocalIO = %q", got)
	}
	if got := ErrorKind(99).String(); got != "ErrorKind(99)" {
		t.Errorf("out of range = %q", got)
	}
}
