// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/bureau-foundation/chatcore/lib/ref"

// Response is an outcome reported by the engine. The concrete types are
// the structs in this file and [*Failure].
type Response interface {
	response()
}

// Token reports a successful login, registration, or guest entry. The
// caller may persist the credentials.
type Token struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
	Guest       bool       `json:"guest,omitempty"`
}

// DisplayName reports the logged-in user's display name, or the user
// id when none is set.
type DisplayName struct {
	Name string `json:"name"`
}

// Avatar reports the local path of the logged-in user's avatar ("" when
// there is none or it could not be fetched).
type Avatar struct {
	Path string `json:"path"`
}

// Synced ends every successful sync.
type Synced struct {
	Cursor  string `json:"cursor"`
	Initial bool   `json:"initial"`
}

// Rooms reports the joined rooms after an initial sync. Default is the
// room most recently joined through [JoinRoom], if present.
type Rooms struct {
	Rooms   []Room `json:"rooms"`
	Default *Room  `json:"default,omitempty"`
}

// RoomDetail reports one state value of a room.
type RoomDetail struct {
	RoomID ref.RoomID `json:"room_id"`
	Key    string     `json:"key"`
	Value  string     `json:"value"`
}

// RoomAvatar reports the local path of a room's avatar ("" when there
// is none).
type RoomAvatar struct {
	RoomID ref.RoomID `json:"room_id"`
	Path   string     `json:"path"`
}

// RoomAvatarChanged reports an avatar change seen during sync.
type RoomAvatarChanged struct {
	RoomID    ref.RoomID `json:"room_id"`
	AvatarURL string     `json:"avatar_url"`
}

// RoomMessages is the batch of new messages from one incremental sync,
// across all rooms. It may be empty.
type RoomMessages struct {
	Messages []Message `json:"messages"`
}

// RoomMessagesInit is the initial window of an activated room, oldest
// first.
type RoomMessagesInit struct {
	RoomID   ref.RoomID `json:"room_id"`
	Messages []Message  `json:"messages"`
}

// RoomMessagesOlder is one backward page, oldest first. Empty once the
// start of history has been reached.
type RoomMessagesOlder struct {
	RoomID   ref.RoomID `json:"room_id"`
	Messages []Message  `json:"messages"`
}

// RoomMembers lists a room's joined members.
type RoomMembers struct {
	RoomID  ref.RoomID `json:"room_id"`
	Members []Member   `json:"members"`
}

// MessageSent confirms a sent message.
type MessageSent struct {
	RoomID        ref.RoomID  `json:"room_id"`
	TransactionID string      `json:"transaction_id"`
	EventID       ref.EventID `json:"event_id"`
}

// Protocols lists searchable directory networks, the home server first.
type Protocols struct {
	Protocols []Protocol `json:"protocols"`
}

// DirectoryRooms is one page of directory results. More echoes the
// request; HasMore reports whether another page exists.
type DirectoryRooms struct {
	Rooms   []Room `json:"rooms"`
	More    bool   `json:"more"`
	HasMore bool   `json:"has_more"`
}

// JoinedRoom confirms a join.
type JoinedRoom struct {
	RoomID ref.RoomID `json:"room_id"`
}

// LeftRoom confirms a leave.
type LeftRoom struct {
	RoomID ref.RoomID `json:"room_id"`
}

// MarkedAsRead confirms a read receipt.
type MarkedAsRead struct {
	RoomID  ref.RoomID  `json:"room_id"`
	EventID ref.EventID `json:"event_id"`
}

// RoomNameSet confirms a name change made by this client.
type RoomNameSet struct {
	RoomID ref.RoomID `json:"room_id"`
	Name   string     `json:"name"`
}

// RoomTopicSet confirms a topic change made by this client.
type RoomTopicSet struct {
	RoomID ref.RoomID `json:"room_id"`
	Topic  string     `json:"topic"`
}

// RoomAvatarSet confirms an avatar change made by this client.
type RoomAvatarSet struct {
	RoomID    ref.RoomID `json:"room_id"`
	AvatarURL string     `json:"avatar_url"`
}

// RoomNameChanged reports a name change seen during sync.
type RoomNameChanged struct {
	RoomID ref.RoomID `json:"room_id"`
	Name   string     `json:"name"`
}

// RoomTopicChanged reports a topic change seen during sync.
type RoomTopicChanged struct {
	RoomID ref.RoomID `json:"room_id"`
	Topic  string     `json:"topic"`
}

// Media reports the local path of downloaded content.
type Media struct {
	URI         string `json:"uri"`
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
}

// FileAttached reports an uploaded attachment as a provisional message
// that the caller may send with [SendMessage].
type FileAttached struct {
	RoomID  ref.RoomID `json:"room_id"`
	Message Message    `json:"message"`
}

func (Token) response()             {}
func (DisplayName) response()       {}
func (Avatar) response()            {}
func (Synced) response()            {}
func (Rooms) response()             {}
func (RoomDetail) response()        {}
func (RoomAvatar) response()        {}
func (RoomAvatarChanged) response() {}
func (RoomMessages) response()      {}
func (RoomMessagesInit) response()  {}
func (RoomMessagesOlder) response() {}
func (RoomMembers) response()       {}
func (MessageSent) response()       {}
func (Protocols) response()         {}
func (DirectoryRooms) response()    {}
func (JoinedRoom) response()        {}
func (LeftRoom) response()          {}
func (MarkedAsRead) response()      {}
func (RoomNameSet) response()       {}
func (RoomTopicSet) response()      {}
func (RoomAvatarSet) response()     {}
func (RoomNameChanged) response()   {}
func (RoomTopicChanged) response()  {}
func (Media) response()             {}
func (FileAttached) response()      {}
func (*Failure) response()          {}
