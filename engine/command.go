// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/bureau-foundation/chatcore/lib/secret"

// Command is a request to the engine. The concrete types are the
// structs in this file.
type Command interface {
	command()
}

// Login authenticates with a password. An empty Server uses the
// configured homeserver. The caller owns Password and may close it once
// the corresponding Token or Failure has been received.
type Login struct {
	Username string
	Password *secret.Buffer
	Server   string
}

// Register creates an account and logs into it. RegistrationToken may
// be nil when the server allows open registration.
type Register struct {
	Username          string
	Password          *secret.Buffer
	RegistrationToken *secret.Buffer
	Server            string
}

// ResumeSession adopts credentials from an earlier Token without
// contacting the server. The token is not validated; a revoked token
// surfaces as an auth failure on the first request. The caller owns
// AccessToken.
type ResumeSession struct {
	UserID      string
	DeviceID    string
	AccessToken *secret.Buffer
	Server      string
}

// GuestEntry registers a guest account.
type GuestEntry struct {
	Server string
}

// GetDisplayName asks for the logged-in user's display name.
type GetDisplayName struct{}

// GetAvatar asks for a local copy of the logged-in user's avatar.
type GetAvatar struct{}

// Sync runs one sync: the initial room list when no cursor is stored,
// otherwise an incremental long poll.
type Sync struct{}

// ForcedSync discards the sync cursor and runs an initial sync.
type ForcedSync struct{}

// FetchOlderMessages pages the active room's timeline backward.
type FetchOlderMessages struct {
	RoomID string
}

// GetRoomAvatar resolves a room's avatar to a local file.
type GetRoomAvatar struct {
	RoomID string
}

// GetThumbnail resolves a content URI to a local thumbnail and sends
// the path on Reply ("" on failure). Reply should be buffered.
type GetThumbnail struct {
	URI   string
	Reply chan<- string
}

// GetMedia downloads a content URI to the local cache.
type GetMedia struct {
	URI string
}

// GetUserInfo fetches a user's display name and avatar and sends them
// on Reply. Reply should be buffered.
type GetUserInfo struct {
	UserID string
	Reply  chan<- UserInfo
}

// SendMessage sends a message. RoomID, Type, Body and, for media,
// MediaURL are used; the engine assigns the transaction id.
type SendMessage struct {
	Message Message
}

// SetActiveRoom makes a room the active one: its topic, avatar,
// members, and most recent messages are loaded.
type SetActiveRoom struct {
	RoomID string
}

// Shutdown stops the dispatcher after in-flight workers finish.
type Shutdown struct{}

// DirectoryListProtocols lists the networks the room directory can
// search.
type DirectoryListProtocols struct{}

// DirectorySearch searches the public room directory. With More set,
// Query and Protocol are ignored and the next page of the previous
// search is fetched.
type DirectorySearch struct {
	Query    string
	Protocol string
	More     bool
}

// JoinRoom joins a room. The next initial sync selects it as the
// default room.
type JoinRoom struct {
	RoomID string
}

// MarkAsRead sends a read receipt for an event.
type MarkAsRead struct {
	RoomID  string
	EventID string
}

// LeaveRoom leaves a room.
type LeaveRoom struct {
	RoomID string
}

// SetRoomName changes a room's name.
type SetRoomName struct {
	RoomID string
	Name   string
}

// SetRoomTopic changes a room's topic.
type SetRoomTopic struct {
	RoomID string
	Topic  string
}

// SetRoomAvatar uploads a local image and makes it the room's avatar.
type SetRoomAvatar struct {
	RoomID string
	Path   string
}

// AttachFile uploads a local file and reports a provisional message
// referencing it. The message is not sent.
type AttachFile struct {
	RoomID string
	Path   string
}

func (Login) command()                  {}
func (Register) command()               {}
func (ResumeSession) command()          {}
func (GuestEntry) command()             {}
func (GetDisplayName) command()         {}
func (GetAvatar) command()              {}
func (Sync) command()                   {}
func (ForcedSync) command()             {}
func (FetchOlderMessages) command()     {}
func (GetRoomAvatar) command()          {}
func (GetThumbnail) command()           {}
func (GetMedia) command()               {}
func (GetUserInfo) command()            {}
func (SendMessage) command()            {}
func (SetActiveRoom) command()          {}
func (Shutdown) command()               {}
func (DirectoryListProtocols) command() {}
func (DirectorySearch) command()        {}
func (JoinRoom) command()               {}
func (MarkAsRead) command()             {}
func (LeaveRoom) command()              {}
func (SetRoomName) command()            {}
func (SetRoomTopic) command()           {}
func (SetRoomAvatar) command()          {}
func (AttachFile) command()             {}
