// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/json"
	"net/http"
	"testing"
)

const publicRoomsRoute = "POST /_matrix/client/v3/publicRooms"

func TestDirectorySearch(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	homeserver.handle(publicRoomsRoute, func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body["limit"] != float64(20) {
			t.Errorf("limit = %v", body["limit"])
		}
		switch body["since"] {
		case nil:
			filter, _ := body["filter"].(map[string]any)
			if filter["generic_search_term"] != "chat" {
				t.Errorf("filter = %v", body["filter"])
			}
			if body["third_party_instance_id"] != "irc-libera" {
				t.Errorf("third_party_instance_id = %v", body["third_party_instance_id"])
			}
			writeJSON(writer, map[string]any{
				"chunk": []any{map[string]any{
					"room_id":            "!pub1:example.org",
					"name":               "Public",
					"topic":              "Everyone welcome",
					"canonical_alias":    "#public:example.org",
					"num_joined_members": 42,
					"world_readable":     true,
					"guest_can_join":     true,
				}},
				"next_batch": "n1",
			})
		case "n1":
			if len(body) != 2 {
				t.Errorf("continuation body = %v, want only limit and since", body)
			}
			writeJSON(writer, map[string]any{
				"chunk": []any{map[string]any{"room_id": "!pub2:example.org", "num_joined_members": 1}},
			})
		default:
			t.Errorf("unexpected since %v", body["since"])
		}
	})
	h := newHarness(t, homeserver)
	h.login()

	h.send(DirectorySearch{Query: "chat", Protocol: "irc-libera"})
	page := expect[DirectoryRooms](h)
	if page.More || !page.HasMore || len(page.Rooms) != 1 {
		t.Fatalf("first page = %+v", page)
	}
	room := page.Rooms[0]
	if room.ID.String() != "!pub1:example.org" || room.Name != "Public" || room.Alias != "#public:example.org" ||
		room.MemberCount != 42 || !room.WorldReadable || !room.GuestCanJoin || room.Topic != "Everyone welcome" {
		t.Errorf("room = %+v", room)
	}

	h.send(DirectorySearch{More: true})
	page = expect[DirectoryRooms](h)
	if !page.More || page.HasMore || len(page.Rooms) != 1 {
		t.Fatalf("second page = %+v", page)
	}

	// The server sent no next_batch: no more pages, and no request.
	h.send(DirectorySearch{More: true})
	page = expect[DirectoryRooms](h)
	if !page.More || page.HasMore || page.Rooms == nil || len(page.Rooms) != 0 {
		t.Errorf("third page = %+v", page)
	}
	if got := homeserver.count(publicRoomsRoute); got != 2 {
		t.Errorf("publicRooms requests = %d, want 2", got)
	}
}

func TestDirectorySearchEmptyQuery(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	homeserver.handle(publicRoomsRoute, func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]any
		json.NewDecoder(request.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			t.Errorf("unexpected filter %v", body["filter"])
		}
		if _, ok := body["third_party_instance_id"]; ok {
			t.Errorf("unexpected third_party_instance_id %v", body["third_party_instance_id"])
		}
		writeJSON(writer, map[string]any{"chunk": []any{}})
	})
	h := newHarness(t, homeserver)
	h.login()

	h.send(DirectorySearch{})
	if page := expect[DirectoryRooms](h); len(page.Rooms) != 0 || page.HasMore {
		t.Errorf("page = %+v", page)
	}
}

func TestDirectoryProtocols(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	homeserver.handle("GET /_matrix/client/v3/thirdparty/protocols", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]any{
			"irc": map[string]any{"instances": []any{
				map[string]any{"desc": "Libera", "instance_id": "irc-libera"},
				map[string]any{"desc": "OFTC", "instance_id": "irc-oftc"},
			}},
			"gitter": map[string]any{"instances": []any{
				map[string]any{"desc": "Gitter", "instance_id": "gitter"},
			}},
		})
	})
	h := newHarness(t, homeserver)
	h.login()

	h.send(DirectoryListProtocols{})
	protocols := expect[Protocols](h)
	want := []Protocol{
		{ID: "", Description: "127.0.0.1"},
		{ID: "gitter", Description: "Gitter"},
		{ID: "irc-libera", Description: "Libera"},
		{ID: "irc-oftc", Description: "OFTC"},
	}
	if len(protocols.Protocols) != len(want) {
		t.Fatalf("protocols = %+v, want %+v", protocols.Protocols, want)
	}
	for i := range want {
		if protocols.Protocols[i] != want[i] {
			t.Errorf("protocol %d = %+v, want %+v", i, protocols.Protocols[i], want[i])
		}
	}
}
