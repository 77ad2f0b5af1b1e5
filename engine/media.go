// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

// avatar resolves the logged-in user's avatar on a worker. Every
// failure after the session check degrades to an empty path.
func (e *Engine) avatar(ctx context.Context, out *emitter) error {
	session, err := e.state.current()
	if err != nil {
		return err
	}
	e.spawn(out, FamilyAvatar, func() (Response, error) {
		profile, err := session.GetProfile(ctx, session.UserID())
		if err != nil {
			e.logger.Warn("fetching own profile failed", "user_id", session.UserID(), "error", err)
			return Avatar{}, nil
		}
		return Avatar{Path: e.resolveAvatar(ctx, session, profile.AvatarURL)}, nil
	})
	return nil
}

// resolveAvatar returns the cached path of an avatar URL, or "" when
// raw is empty or resolution fails.
func (e *Engine) resolveAvatar(ctx context.Context, session messaging.Session, raw string) string {
	if raw == "" {
		return ""
	}
	uri, err := ref.ParseContentURI(raw)
	if err != nil {
		e.logger.Warn("ignoring invalid avatar url", "url", raw, "error", err)
		return ""
	}
	path, err := e.resolver.Avatar(ctx, session, uri)
	if err != nil {
		e.logger.Warn("resolving avatar failed", "url", raw, "error", err)
		return ""
	}
	return path
}

// userInfo fetches a user's display name and avatar and replies on the
// command's channel. Failures reply with empty fields.
func (e *Engine) userInfo(ctx context.Context, command GetUserInfo) {
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		reply(ctx, command.Reply, e.lookupUser(ctx, command.UserID))
	}()
}

func (e *Engine) lookupUser(ctx context.Context, raw string) UserInfo {
	session, err := e.state.current()
	if err != nil {
		return UserInfo{}
	}
	userID, err := ref.ParseUserID(raw)
	if err != nil {
		e.logger.Warn("ignoring invalid user id", "user_id", raw, "error", err)
		return UserInfo{}
	}
	profile, err := session.GetProfile(ctx, userID)
	if err != nil {
		e.logger.Warn("fetching profile failed", "user_id", userID, "error", err)
		return UserInfo{}
	}
	return UserInfo{
		DisplayName: profile.DisplayName,
		AvatarPath:  e.resolveAvatar(ctx, session, profile.AvatarURL),
	}
}

// thumbnail resolves a thumbnail and replies with its path, or "" on
// any failure.
func (e *Engine) thumbnail(ctx context.Context, command GetThumbnail) {
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		reply(ctx, command.Reply, e.lookupThumbnail(ctx, command.URI))
	}()
}

func (e *Engine) lookupThumbnail(ctx context.Context, raw string) string {
	session, err := e.state.current()
	if err != nil {
		return ""
	}
	uri, err := ref.ParseContentURI(raw)
	if err != nil {
		e.logger.Warn("ignoring invalid thumbnail url", "url", raw, "error", err)
		return ""
	}
	path, err := e.resolver.Thumbnail(ctx, session, uri)
	if err != nil {
		e.logger.Warn("resolving thumbnail failed", "url", raw, "error", err)
		return ""
	}
	return path
}

// media downloads content on a worker.
func (e *Engine) media(ctx context.Context, out *emitter, command GetMedia) error {
	uri, err := ref.ParseContentURI(command.URI)
	if err != nil {
		return invalid("content uri", command.URI, err)
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	e.spawn(out, FamilyMedia, func() (Response, error) {
		path, metadata, err := e.resolver.Download(ctx, session, uri)
		if err != nil {
			return nil, err
		}
		return Media{URI: command.URI, Path: path, ContentType: metadata.ContentType}, nil
	})
	return nil
}

// roomAvatar looks up a room's avatar URL and resolves the file on a
// worker. Rooms without an avatar that have exactly two members use the
// other member's avatar.
func (e *Engine) roomAvatar(ctx context.Context, out *emitter, raw string) error {
	roomID, err := parseRoomID(raw)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}

	avatarURL, err := e.roomAvatarURL(ctx, session, roomID)
	if err != nil {
		return err
	}
	if avatarURL == "" {
		out.emit(RoomAvatar{RoomID: roomID})
		return nil
	}

	e.spawn(out, FamilyRoomAvatar, func() (Response, error) {
		return RoomAvatar{RoomID: roomID, Path: e.resolveAvatar(ctx, session, avatarURL)}, nil
	})
	return nil
}

func (e *Engine) roomAvatarURL(ctx context.Context, session messaging.Session, roomID ref.RoomID) (string, error) {
	content, err := session.GetStateEvent(ctx, roomID, ref.EventTypeRoomAvatar, "")
	if err != nil && !messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
		return "", err
	}
	if err == nil {
		var avatar messaging.RoomAvatarContent
		if err := json.Unmarshal(content, &avatar); err != nil {
			return "", err
		}
		if avatar.URL != "" {
			return avatar.URL, nil
		}
	}

	members, err := session.GetRoomMembers(ctx, roomID)
	if err != nil {
		e.logger.Warn("listing members for avatar fallback failed", "room_id", roomID, "error", err)
		return "", nil
	}
	if len(members) != 2 {
		return "", nil
	}
	for _, member := range members {
		if member.UserID != session.UserID() {
			return member.AvatarURL, nil
		}
	}
	return "", nil
}
