// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type.
//
// EventType is a named string type, not a struct wrapper: event types
// are opaque identifiers that need no parsing or validation. The type
// exists for compile-time safety, preventing accidental use of a state
// key where an event type is expected (or vice versa).
type EventType string

// Standard Matrix event types the client reads or writes.
const (
	EventTypeMessage           EventType = "m.room.message"
	EventTypeRoomName          EventType = "m.room.name"
	EventTypeRoomTopic         EventType = "m.room.topic"
	EventTypeRoomAvatar        EventType = "m.room.avatar"
	EventTypeRoomMember        EventType = "m.room.member"
	EventTypeCanonicalAlias    EventType = "m.room.canonical_alias"
	EventTypeHistoryVisibility EventType = "m.room.history_visibility"
	EventTypeGuestAccess       EventType = "m.room.guest_access"
	EventTypeReceiptRead       EventType = "m.read"
)

// String returns the event type string (e.g., "m.room.name").
func (t EventType) String() string { return string(t) }
