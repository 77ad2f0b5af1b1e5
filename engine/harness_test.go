// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/chatcore/lib/clock"
	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/lib/secret"
	"github.com/bureau-foundation/chatcore/lib/testutil"
	"github.com/bureau-foundation/chatcore/media"
	"github.com/bureau-foundation/chatcore/messaging"
)

const (
	testToken   = "syt_test_token"
	testRoomRaw = "!room1:example.org"
	testTimeout = 5 * time.Second
)

var (
	testUser  = ref.MustParseUserID("@alice:example.org")
	testRoom  = ref.MustParseRoomID(testRoomRaw)
	testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

const (
	loginRoute    = "POST /_matrix/client/v3/login"
	registerRoute = "POST /_matrix/client/v3/register"
)

// fakeHomeserver routes requests by "METHOD /unescaped/path" and counts
// them. Unrouted requests fail the test.
type fakeHomeserver struct {
	t      *testing.T
	server *httptest.Server

	mutex  sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	t.Helper()
	homeserver := &fakeHomeserver{
		t:      t,
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	homeserver.handle(loginRoute, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, messaging.AuthResponse{
			UserID:      testUser,
			AccessToken: testToken,
			DeviceID:    "TESTDEVICE",
		})
	})
	homeserver.server = httptest.NewServer(homeserver)
	t.Cleanup(homeserver.server.Close)
	return homeserver
}

func (f *fakeHomeserver) handle(route string, handler http.HandlerFunc) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.routes[route] = handler
}

func (f *fakeHomeserver) count(route string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.hits[route]
}

func (f *fakeHomeserver) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	route := request.Method + " " + request.URL.Path
	f.mutex.Lock()
	handler, ok := f.routes[route]
	f.hits[route]++
	f.mutex.Unlock()

	if !ok {
		f.t.Errorf("unexpected request: %s", route)
		writeError(writer, http.StatusNotFound, messaging.ErrCodeUnrecognized, "no route")
		return
	}
	if route != loginRoute && route != registerRoute {
		assertAuth(f.t, request)
	}
	handler(writer, request)
}

func assertAuth(t *testing.T, request *http.Request) {
	t.Helper()
	if got := request.URL.Query().Get("access_token"); got != testToken {
		t.Errorf("%s %s: access_token = %q, want %q", request.Method, request.URL.Path, got, testToken)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"errcode": code, "error": message})
}

func notFound(writer http.ResponseWriter, request *http.Request) {
	writeError(writer, http.StatusNotFound, messaging.ErrCodeNotFound, "not found")
}

// harness runs an Engine against a fake homeserver.
type harness struct {
	t          *testing.T
	homeserver *fakeHomeserver
	engine     *Engine
	cache      *media.Cache
	commands   chan Command
	responses  chan Response
	done       chan error
	cancel     context.CancelFunc
	stopped    bool
}

func newHarness(t *testing.T, homeserver *fakeHomeserver, mutate ...func(*Config)) *harness {
	t.Helper()
	fakeClock := clock.Fake(testEpoch)
	cache, err := media.NewCache(media.CacheConfig{
		Directory: t.TempDir(),
		Clock:     fakeClock,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	config := Config{
		Homeserver:        homeserver.server.URL,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:             fakeClock,
		Cache:             cache,
		TransactionPrefix: "txn",
	}
	for _, apply := range mutate {
		apply(&config)
	}
	engine, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:          t,
		homeserver: homeserver,
		engine:     engine,
		cache:      cache,
		commands:   make(chan Command, 16),
		responses:  make(chan Response, 64),
		done:       make(chan error, 1),
		cancel:     cancel,
	}
	go func() {
		h.done <- engine.Run(ctx, h.commands, h.responses)
	}()
	t.Cleanup(func() {
		if h.stopped {
			return
		}
		cancel()
		testutil.RequireReceive(t, h.done, testTimeout, "waiting for Run to return")
	})
	return h
}

func (h *harness) send(command Command) {
	h.t.Helper()
	testutil.RequireSend[Command](h.t, h.commands, command, testTimeout, "sending %T", command)
}

func (h *harness) receive() Response {
	h.t.Helper()
	return testutil.RequireReceive[Response](h.t, h.responses, testTimeout, "waiting for response")
}

// shutdown sends Shutdown and returns Run's result.
func (h *harness) shutdown() error {
	h.t.Helper()
	h.send(Shutdown{})
	err := testutil.RequireReceive(h.t, h.done, testTimeout, "waiting for Run to return")
	h.stopped = true
	h.cancel()
	return err
}

// login authenticates and consumes the Token response.
func (h *harness) login() {
	h.t.Helper()
	password, err := secret.NewFromString("correct horse")
	if err != nil {
		h.t.Fatalf("NewFromString: %v", err)
	}
	h.t.Cleanup(func() { password.Close() })
	h.send(Login{Username: "alice", Password: password})
	expect[Token](h)
}

// expect receives one response and fails unless it has type T.
func expect[T Response](h *harness) T {
	h.t.Helper()
	response := h.receive()
	typed, ok := response.(T)
	if !ok {
		var want T
		h.t.Fatalf("got %T %+v, want %T", response, response, want)
	}
	return typed
}

// expectFailure receives one response and checks it is a Failure of
// the given family and kind.
func expectFailure(h *harness, family Family, kind ErrorKind) *Failure {
	h.t.Helper()
	failure := expect[*Failure](h)
	if failure.Family != family || failure.Kind != kind {
		h.t.Fatalf("got failure %s/%s (%v), want %s/%s", failure.Family, failure.Kind, failure.Err, family, kind)
	}
	return failure
}

func messageEvent(eventID, sender, body string, timestamp int64) map[string]any {
	return map[string]any{
		"event_id":         eventID,
		"type":             "m.room.message",
		"sender":           sender,
		"origin_server_ts": timestamp,
		"content":          map[string]any{"msgtype": "m.text", "body": body},
	}
}

func stateEvent(eventType, stateKey string, content map[string]any) map[string]any {
	return map[string]any{
		"event_id":         "$state-" + eventType + "-" + stateKey,
		"type":             eventType,
		"sender":           testUser.String(),
		"origin_server_ts": 1,
		"state_key":        stateKey,
		"content":          content,
	}
}

func memberEvent(userID, displayName string) map[string]any {
	return stateEvent("m.room.member", userID, map[string]any{
		"membership":  "join",
		"displayname": displayName,
	})
}

// pngBytes is the smallest header mimetype recognizes as image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
