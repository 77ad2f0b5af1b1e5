// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

// sync runs one sync. With no stored cursor it performs the initial
// sync and reports the room list; otherwise it long-polls for changes
// and reports new messages and room metadata changes.
func (e *Engine) sync(ctx context.Context, out *emitter) error {
	session, err := e.state.current()
	if err != nil {
		return err
	}

	since := e.state.cursor()
	initial := since == ""
	options := messaging.SyncOptions{}
	if initial {
		options.Filter = e.initialFilter
	} else {
		options.Since = since
		options.Timeout = int(e.config.SyncTimeout.Milliseconds())
		options.SetTimeout = true
	}

	response, err := session.Sync(ctx, options)
	if err != nil {
		return err
	}
	// The cursor advances before the payload is interpreted: a payload
	// that fails to decode must not be fetched again.
	e.state.setCursor(response.NextBatch)

	rooms, err := messaging.DecodeSyncRooms(response.Rooms)
	if err != nil {
		return err
	}

	if initial {
		e.reportRooms(out, session.UserID(), rooms)
	} else {
		e.reportChanges(out, rooms)
	}
	out.emit(Synced{Cursor: response.NextBatch, Initial: initial})
	return nil
}

// sortedRoomIDs returns the joined room ids in a stable order, dropping
// keys that are not valid room ids.
func (e *Engine) sortedRoomIDs(rooms *messaging.SyncRooms) []ref.RoomID {
	keys := make([]string, 0, len(rooms.Join))
	for key := range rooms.Join {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	roomIDs := make([]ref.RoomID, 0, len(keys))
	for _, key := range keys {
		roomID, err := ref.ParseRoomID(key)
		if err != nil {
			e.logger.Warn("skipping room with invalid id in sync", "room_id", key, "error", err)
			continue
		}
		roomIDs = append(roomIDs, roomID)
	}
	return roomIDs
}

// reportRooms emits the room list of an initial sync.
func (e *Engine) reportRooms(out *emitter, self ref.UserID, rooms *messaging.SyncRooms) {
	pending := e.state.pendingJoinRoom()
	result := Rooms{Rooms: []Room{}}
	for _, roomID := range e.sortedRoomIDs(rooms) {
		room := e.buildRoom(roomID, self, rooms.Join[roomID.String()])
		result.Rooms = append(result.Rooms, room)
		if !pending.IsZero() && roomID == pending {
			selected := room
			result.Default = &selected
		}
	}
	if result.Default != nil {
		e.state.clearPendingJoin(pending)
	}
	e.logger.Info("initial sync complete", "rooms", len(result.Rooms))
	out.emit(result)
}

// roomState accumulates the state of one room during an initial sync.
type roomState struct {
	room    Room
	members map[ref.UserID]string
}

// buildRoom assembles a Room from the state of an initial sync.
func (e *Engine) buildRoom(roomID ref.RoomID, self ref.UserID, joined messaging.JoinedRoom) Room {
	state := roomState{
		room:    Room{ID: roomID, UnreadCount: joined.UnreadNotifications.NotificationCount},
		members: make(map[ref.UserID]string),
	}

	events := e.decodeEvents(roomID, joined.State.Events)
	for _, event := range e.decodeEvents(roomID, joined.Timeline.Events) {
		if event.IsState() {
			events = append(events, event)
		}
	}
	for _, event := range events {
		if err := state.apply(event); err != nil {
			e.logger.Warn("skipping undecodable state event",
				"room_id", roomID, "event_type", event.Type, "error", err)
		}
	}

	state.room.MemberCount = len(state.members)
	if state.room.Name == "" {
		state.room.Name = state.room.Alias
	}
	if state.room.Name == "" {
		state.room.Name = memberRoomName(self, state.members)
	}
	return state.room
}

// apply folds one state event into the room.
func (s *roomState) apply(event messaging.Event) error {
	switch event.Type {
	case ref.EventTypeRoomName:
		return decodeInto(event.Content, "name", &s.room.Name)
	case ref.EventTypeRoomTopic:
		return decodeInto(event.Content, "topic", &s.room.Topic)
	case ref.EventTypeRoomAvatar:
		return decodeInto(event.Content, "url", &s.room.AvatarURL)
	case ref.EventTypeCanonicalAlias:
		return decodeInto(event.Content, "alias", &s.room.Alias)
	case ref.EventTypeHistoryVisibility:
		var visibility string
		err := decodeInto(event.Content, "history_visibility", &visibility)
		s.room.WorldReadable = visibility == "world_readable"
		return err
	case ref.EventTypeGuestAccess:
		var access string
		err := decodeInto(event.Content, "guest_access", &access)
		s.room.GuestCanJoin = access == "can_join"
		return err
	case ref.EventTypeRoomMember:
		if event.StateKey == nil {
			return fmt.Errorf("member event %s has no state_key", event.EventID)
		}
		userID, err := ref.ParseUserID(*event.StateKey)
		if err != nil {
			return err
		}
		var content messaging.RoomMemberContent
		if err := json.Unmarshal(event.Content, &content); err != nil {
			return err
		}
		if content.Membership == "join" {
			s.members[userID] = content.DisplayName
		} else {
			delete(s.members, userID)
		}
	}
	return nil
}

func decodeInto(content json.RawMessage, field string, target *string) error {
	value, err := stateString(content, field)
	if err != nil {
		return err
	}
	*target = value
	return nil
}

// memberRoomName names a room after its other joined members when it
// has no explicit name or alias.
func memberRoomName(self ref.UserID, members map[ref.UserID]string) string {
	names := make([]string, 0, len(members))
	for userID, displayName := range members {
		if userID == self {
			continue
		}
		if displayName == "" {
			displayName = userID.Localpart()
		}
		names = append(names, displayName)
	}
	sort.Strings(names)

	switch len(names) {
	case 0:
		return "Empty room"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return fmt.Sprintf("%s and %d others", names[0], len(names)-1)
	}
}

// reportChanges emits the results of an incremental sync: one batch of
// new messages across all rooms, then one response per recognized room
// state change.
func (e *Engine) reportChanges(out *emitter, rooms *messaging.SyncRooms) {
	batch := RoomMessages{Messages: []Message{}}
	var changes []Response

	for _, roomID := range e.sortedRoomIDs(rooms) {
		joined := rooms.Join[roomID.String()]
		for _, event := range e.decodeEvents(roomID, joined.State.Events) {
			changes = e.appendChange(changes, roomID, event)
		}
		for _, event := range e.decodeEvents(roomID, joined.Timeline.Events) {
			if event.IsState() {
				changes = e.appendChange(changes, roomID, event)
				continue
			}
			if message, ok := e.messageFromEvent(roomID, event); ok {
				batch.Messages = append(batch.Messages, message)
			}
		}
	}

	out.emit(batch)
	for _, change := range changes {
		out.emit(change)
	}
}

// appendChange appends the response for a room state change, if the
// event type is one the caller tracks.
func (e *Engine) appendChange(changes []Response, roomID ref.RoomID, event messaging.Event) []Response {
	var field string
	switch event.Type {
	case ref.EventTypeRoomName:
		field = "name"
	case ref.EventTypeRoomTopic:
		field = "topic"
	case ref.EventTypeRoomAvatar:
		field = "url"
	default:
		e.logger.Debug("ignoring state event", "room_id", roomID, "event_type", event.Type)
		return changes
	}

	value, err := stateString(event.Content, field)
	if err != nil {
		e.logger.Warn("skipping undecodable state event",
			"room_id", roomID, "event_type", event.Type, "error", err)
		return changes
	}

	switch event.Type {
	case ref.EventTypeRoomName:
		return append(changes, RoomNameChanged{RoomID: roomID, Name: value})
	case ref.EventTypeRoomTopic:
		return append(changes, RoomTopicChanged{RoomID: roomID, Topic: value})
	default:
		return append(changes, RoomAvatarChanged{RoomID: roomID, AvatarURL: value})
	}
}
