// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/lib/secret"
)

// RegisterRequest holds parameters for registering a new Matrix account.
// Password and RegistrationToken are stored in mmap-backed buffers (locked
// against swap, excluded from core dumps). The caller retains ownership of
// the buffers. Register reads from them but does not close them.
//
// RegistrationToken is optional. Without it the dummy auth stage is used.
type RegisterRequest struct {
	Username          string
	Password          *secret.Buffer
	RegistrationToken *secret.Buffer
}

// AuthResponse is returned by Register, RegisterGuest, and Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string         `json:"type"`
	Identifier               UserIdentifier `json:"identifier"`
	Password                 string         `json:"password"`
	InitialDeviceDisplayName string         `json:"initial_device_display_name,omitempty"`
}

// UserIdentifier is the m.id.user login identifier.
type UserIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// Event represents a Matrix event from the server. Content is kept raw;
// callers decode it into the type-specific content struct.
type Event struct {
	EventID        ref.EventID     `json:"event_id"`
	Type           ref.EventType   `json:"type"`
	Sender         ref.UserID      `json:"sender"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Content        json.RawMessage `json:"content"`
	StateKey       *string         `json:"state_key,omitempty"`
	Unsigned       *EventUnsigned  `json:"unsigned,omitempty"`
}

// IsState reports whether the event carries a state key.
func (e *Event) IsState() bool {
	return e.StateKey != nil
}

// EventUnsigned holds optional unsigned data attached to events.
type EventUnsigned struct {
	Age           int64  `json:"age,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// MessageContent is the content body of an m.room.message event. URL is
// set for media messages (m.image, m.file).
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
	URL     string `json:"url,omitempty"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// RoomNameContent is the content of m.room.name.
type RoomNameContent struct {
	Name string `json:"name"`
}

// RoomTopicContent is the content of m.room.topic.
type RoomTopicContent struct {
	Topic string `json:"topic"`
}

// RoomAvatarContent is the content of m.room.avatar.
type RoomAvatarContent struct {
	URL string `json:"url"`
}

// CanonicalAliasContent is the content of m.room.canonical_alias.
type CanonicalAliasContent struct {
	Alias string `json:"alias"`
}

// RoomMessagesOptions controls pagination for room message fetching.
type RoomMessagesOptions struct {
	From      string // pagination token; empty means "from now"
	Direction string // "b" (backward/older) or "f" (forward/newer)
	Limit     int    // max events to return; 0 uses server default
}

// RoomMessagesResponse is returned by RoomMessages. Chunk events are
// newest first for backward pagination. End is absent when there is no
// more history.
type RoomMessagesResponse struct {
	Start string            `json:"start"`
	End   string            `json:"end,omitempty"`
	Chunk []json.RawMessage `json:"chunk"`
}

// SyncOptions controls the behavior of the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch token from previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds; 0 for immediate return
	SetTimeout bool   // if true, send the timeout parameter (needed to distinguish "not set" from "0")
	Filter     string // filter ID or inline JSON filter
	FullState  bool   // sent as full_state; false is sent explicitly
}

// SyncResponse is the top-level response from /sync. Rooms is left raw
// so the caller can store NextBatch before interpreting the payload;
// decode it with [DecodeSyncRooms].
type SyncResponse struct {
	NextBatch string          `json:"next_batch"`
	Rooms     json.RawMessage `json:"rooms,omitempty"`
}

// SyncRooms contains per-room sync data. Map keys are kept as strings
// and validated per room, so one bad key does not discard every room.
type SyncRooms struct {
	Join map[string]JoinedRoom `json:"join,omitempty"`
}

// JoinedRoom contains sync data for a room the user has joined.
type JoinedRoom struct {
	Timeline            TimelineSection     `json:"timeline"`
	State               StateSection        `json:"state"`
	UnreadNotifications UnreadNotifications `json:"unread_notifications"`
}

// TimelineSection contains timeline events from a sync response.
type TimelineSection struct {
	Events    []json.RawMessage `json:"events"`
	PrevBatch string            `json:"prev_batch"`
	Limited   bool              `json:"limited"`
}

// StateSection contains state events from a sync response.
type StateSection struct {
	Events []json.RawMessage `json:"events"`
}

// UnreadNotifications carries the server's per-room counters.
type UnreadNotifications struct {
	NotificationCount int `json:"notification_count"`
	HighlightCount    int `json:"highlight_count"`
}

// SendEventResponse is returned by SendEvent and SendStateEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// UploadResponse is returned by UploadMedia.
type UploadResponse struct {
	ContentURI string `json:"content_uri"`
}

// RoomMember represents a joined member of a Matrix room.
type RoomMember struct {
	UserID      ref.UserID `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Membership  string     `json:"membership"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
}

// RoomMembersResponse is returned by the /members endpoint.
type RoomMembersResponse struct {
	Chunk []RoomMemberEvent `json:"chunk"`
}

// RoomMemberEvent is a member state event from the /members endpoint.
type RoomMemberEvent struct {
	Type     string            `json:"type"`
	StateKey string            `json:"state_key"`
	Content  RoomMemberContent `json:"content"`
}

// RoomMemberContent is the content of a m.room.member state event.
type RoomMemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// DisplayNameResponse is returned by the /profile/{userId}/displayname endpoint.
type DisplayNameResponse struct {
	DisplayName string `json:"displayname"`
}

// Profile is returned by the /profile/{userId} endpoint. Both fields
// are optional.
type Profile struct {
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// PublicRoomsRequest is the body of POST /publicRooms. Filter and
// ThirdPartyInstanceID are only sent on the first page of a search.
type PublicRoomsRequest struct {
	Limit                int                `json:"limit,omitempty"`
	Since                string             `json:"since,omitempty"`
	Filter               *PublicRoomsFilter `json:"filter,omitempty"`
	ThirdPartyInstanceID string             `json:"third_party_instance_id,omitempty"`
}

// PublicRoomsFilter narrows a directory search.
type PublicRoomsFilter struct {
	GenericSearchTerm string `json:"generic_search_term,omitempty"`
}

// PublicRoomsResponse is returned by PublicRooms. NextBatch is empty on
// the last page.
type PublicRoomsResponse struct {
	Chunk                  []PublicRoom `json:"chunk"`
	NextBatch              string       `json:"next_batch,omitempty"`
	TotalRoomCountEstimate int          `json:"total_room_count_estimate,omitempty"`
}

// PublicRoom is one entry of the public room directory.
type PublicRoom struct {
	RoomID           ref.RoomID `json:"room_id"`
	Name             string     `json:"name,omitempty"`
	CanonicalAlias   string     `json:"canonical_alias,omitempty"`
	Topic            string     `json:"topic,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	NumJoinedMembers int        `json:"num_joined_members"`
	WorldReadable    bool       `json:"world_readable"`
	GuestCanJoin     bool       `json:"guest_can_join"`
}

// ThirdPartyProtocol describes one bridge protocol known to the
// homeserver. Only the instances are used by the directory.
type ThirdPartyProtocol struct {
	Instances []ProtocolInstance `json:"instances"`
}

// ProtocolInstance is one network a protocol bridges to.
type ProtocolInstance struct {
	Description string `json:"desc"`
	InstanceID  string `json:"instance_id"`
	NetworkID   string `json:"network_id,omitempty"`
}
