// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"time"

	"github.com/bureau-foundation/chatcore/lib/ref"
)

// Message is a timeline message as presented to the caller.
//
// A provisional message (one built locally before the server has
// assigned an event id) has a zero ID. Messages the server echoes back
// through sync carry the TransactionID they were sent with, so callers
// can reconcile provisional entries against confirmed ones.
type Message struct {
	ID            ref.EventID `json:"id"`
	Sender        ref.UserID  `json:"sender"`
	RoomID        ref.RoomID  `json:"room_id"`
	Type          string      `json:"type"`
	Body          string      `json:"body"`
	Timestamp     time.Time   `json:"timestamp"`
	MediaURL      string      `json:"media_url,omitempty"`
	ThumbnailPath string      `json:"thumbnail_path,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
}

// Room describes a joined room or a directory entry.
type Room struct {
	ID            ref.RoomID `json:"id"`
	Name          string     `json:"name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Topic         string     `json:"topic,omitempty"`
	Alias         string     `json:"alias,omitempty"`
	GuestCanJoin  bool       `json:"guest_can_join"`
	WorldReadable bool       `json:"world_readable"`
	MemberCount   int        `json:"member_count"`
	UnreadCount   int        `json:"unread_count"`
}

// Member is a joined room member.
type Member struct {
	UserID      ref.UserID `json:"user_id"`
	DisplayName string     `json:"display_name,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
}

// Protocol is a directory network the caller can search. The entry
// with an empty ID is the home server's own directory.
type Protocol struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// UserInfo is the reply to [GetUserInfo]. Both fields are empty when
// the profile could not be fetched.
type UserInfo struct {
	DisplayName string `json:"display_name"`
	AvatarPath  string `json:"avatar_path"`
}
