// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"io"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

// Session is the set of authenticated Matrix operations the engine
// performs. *DirectSession is the production implementation; tests may
// substitute their own.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID.
	UserID() ref.UserID

	// Close releases any resources held by the session. Idempotent.
	Close() error

	GetDisplayName(ctx context.Context, userID ref.UserID) (string, error)
	GetProfile(ctx context.Context, userID ref.UserID) (*Profile, error)

	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)
	RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error)

	SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content MessageContent) (ref.EventID, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)

	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)
	LeaveRoom(ctx context.Context, roomID ref.RoomID) error
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)
	SendReadReceipt(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error

	PublicRooms(ctx context.Context, request PublicRoomsRequest) (*PublicRoomsResponse, error)
	ThirdPartyProtocols(ctx context.Context) (map[string]ThirdPartyProtocol, error)

	UploadMedia(ctx context.Context, contentType, filename string, body io.Reader) (ref.ContentURI, error)
	DownloadMedia(ctx context.Context, uri ref.ContentURI, destination io.Writer) (string, error)
	ThumbnailMedia(ctx context.Context, uri ref.ContentURI, width, height int, destination io.Writer) (string, error)
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
