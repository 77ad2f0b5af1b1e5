// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/chatcore/engine"
	"github.com/bureau-foundation/chatcore/media"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		wantErr string
	}{
		{"login", options{username: "alice", searchPages: 1}, ""},
		{"guest", options{guest: true, searchPages: 1}, ""},
		{"guest with user", options{guest: true, username: "alice", searchPages: 1}, "--guest cannot"},
		{"no user", options{searchPages: 1}, "--user is required"},
		{"token without register", options{username: "alice", registrationTokenFile: "t", searchPages: 1}, "requires --register"},
		{"negative syncs", options{username: "alice", syncs: -1, searchPages: 1}, "--syncs"},
		{"zero pages", options{username: "alice"}, "--search-pages"},
		{"resume", options{username: "@alice:example.org", accessTokenFile: "tok", deviceID: "D", searchPages: 1}, ""},
		{"resume with password", options{username: "@alice:example.org", accessTokenFile: "tok", passwordFile: "pw", searchPages: 1}, "--access-token-file cannot"},
		{"device without token", options{username: "alice", deviceID: "D", searchPages: 1}, "--device-id requires"},
		{"protocol without search", options{username: "alice", protocol: "irc", searchPages: 1}, "--protocol requires"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.opts.validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("validate() = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestBuildScript(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		got := buildScript(&options{searchPages: 1})
		want := []engine.Command{engine.GetDisplayName{}, engine.Sync{}, engine.Shutdown{}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("buildScript = %#v, want %#v", got, want)
		}
	})

	t.Run("everything", func(t *testing.T) {
		got := buildScript(&options{
			room:        "!room:example.org",
			search:      "go",
			protocol:    "irc",
			searchPages: 2,
			syncs:       2,
		})
		want := []engine.Command{
			engine.GetDisplayName{},
			engine.Sync{},
			engine.SetActiveRoom{RoomID: "!room:example.org"},
			engine.DirectoryListProtocols{},
			engine.DirectorySearch{Query: "go", Protocol: "irc"},
			engine.DirectorySearch{Query: "go", Protocol: "irc", More: true},
			engine.Sync{},
			engine.Sync{},
			engine.Shutdown{},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("buildScript = %#v, want %#v", got, want)
		}
	})
}

func TestResponseType(t *testing.T) {
	if got := responseType(engine.Synced{}); got != "Synced" {
		t.Errorf("responseType(Synced) = %q", got)
	}
	if got := responseType(&engine.Failure{}); got != "Failure" {
		t.Errorf("responseType(*Failure) = %q", got)
	}
}

func TestAuthOutcome(t *testing.T) {
	if settled, err := authOutcome(engine.Token{}); !settled || err != nil {
		t.Errorf("Token: settled=%v err=%v", settled, err)
	}
	loginFailure := &engine.Failure{Family: engine.FamilyLogin, Kind: engine.KindAuth, Err: errors.New("bad password")}
	if settled, err := authOutcome(loginFailure); !settled || err == nil {
		t.Errorf("login Failure: settled=%v err=%v", settled, err)
	}
	syncFailure := &engine.Failure{Family: engine.FamilySync, Kind: engine.KindTransport, Err: errors.New("down")}
	if settled, _ := authOutcome(syncFailure); settled {
		t.Error("sync Failure settled authentication")
	}
	if settled, _ := authOutcome(engine.Synced{}); settled {
		t.Error("Synced settled authentication")
	}
}

func newTestEngine(t *testing.T, homeserver string) *engine.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache, err := media.NewCache(media.CacheConfig{Directory: t.TempDir(), Logger: logger})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	core, err := engine.New(engine.Config{Homeserver: homeserver, Logger: logger, Cache: cache})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return core
}

// decodeLines parses the JSON-lines output into (type, raw response)
// pairs.
func decodeLines(t *testing.T, output string) []map[string]json.RawMessage {
	t.Helper()
	var lines []map[string]json.RawMessage
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var decoded map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}
		lines = append(lines, decoded)
	}
	return lines
}

func TestDriveGuest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/_matrix/client/v3/register" {
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
			http.NotFound(writer, request)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"user_id":"@guest1:localhost","access_token":"guest_token","device_id":"GUESTDEV"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var output bytes.Buffer
	err := drive(ctx, newTestEngine(t, server.URL), engine.GuestEntry{}, []engine.Command{engine.Shutdown{}}, &output)
	if err != nil {
		t.Fatalf("drive: %v", err)
	}

	lines := decodeLines(t, output.String())
	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1:\n%s", len(lines), output.String())
	}
	if string(lines[0]["type"]) != `"Token"` {
		t.Errorf("type = %s, want \"Token\"", lines[0]["type"])
	}
	var token engine.Token
	if err := json.Unmarshal(lines[0]["response"], &token); err != nil {
		t.Fatalf("decoding token: %v", err)
	}
	if token.UserID.String() != "@guest1:localhost" || !token.Guest {
		t.Errorf("token = %+v", token)
	}
}

func TestDriveAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusForbidden)
		writer.Write([]byte(`{"errcode":"M_GUEST_ACCESS_FORBIDDEN","error":"guests are not allowed"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	script := []engine.Command{engine.GetDisplayName{}, engine.Shutdown{}}
	var output bytes.Buffer
	err := drive(ctx, newTestEngine(t, server.URL), engine.GuestEntry{}, script, &output)

	var failure *engine.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("drive error = %v, want *engine.Failure", err)
	}
	if failure.Family != engine.FamilyGuestLogin {
		t.Errorf("failure family = %q, want %q", failure.Family, engine.FamilyGuestLogin)
	}

	lines := decodeLines(t, output.String())
	if len(lines) != 1 || string(lines[0]["type"]) != `"Failure"` {
		t.Fatalf("output = %s, want a single Failure line", output.String())
	}
}

func TestAuthCommandResume(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenPath, []byte("syt_stored\n"), 0600); err != nil {
		t.Fatalf("writing token: %v", err)
	}

	command, release, err := authCommand(&options{
		username:        "@alice:example.org",
		accessTokenFile: tokenPath,
		deviceID:        "STORED",
	})
	if err != nil {
		t.Fatalf("authCommand: %v", err)
	}
	defer release()

	resume, ok := command.(engine.ResumeSession)
	if !ok {
		t.Fatalf("command = %T, want engine.ResumeSession", command)
	}
	if resume.UserID != "@alice:example.org" || resume.DeviceID != "STORED" || resume.AccessToken.String() != "syt_stored" {
		t.Errorf("resume = {%s %s %q}", resume.UserID, resume.DeviceID, resume.AccessToken.String())
	}
}
