// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"strings"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

func parseRoomID(raw string) (ref.RoomID, error) {
	roomID, err := ref.ParseRoomID(raw)
	if err != nil {
		return ref.RoomID{}, invalid("room id", raw, err)
	}
	return roomID, nil
}

// setActiveRoom loads everything the caller shows for a room. Each part
// reports its own response or failure; only an invalid room id or a
// missing session fails the command as a whole.
func (e *Engine) setActiveRoom(ctx context.Context, out *emitter, command SetActiveRoom) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}

	if err := e.roomDetail(ctx, out, session, roomID, ref.EventTypeRoomTopic); err != nil {
		out.fail(FamilyRoomDetail, err)
	}
	if err := e.roomAvatar(ctx, out, command.RoomID); err != nil {
		out.fail(FamilyRoomAvatar, err)
	}
	if err := e.roomMembers(ctx, out, session, roomID); err != nil {
		out.fail(FamilyRoomMembers, err)
	}
	e.initialMessages(ctx, out, session, roomID)
	return nil
}

// roomDetail reports one state value of a room. The value is the
// content field named after the last segment of the event type (topic
// for m.room.topic). A missing state event reports an empty value.
func (e *Engine) roomDetail(ctx context.Context, out *emitter, session messaging.Session, roomID ref.RoomID, eventType ref.EventType) error {
	key := eventType.String()
	field := key[strings.LastIndexByte(key, '.')+1:]

	value := ""
	content, err := session.GetStateEvent(ctx, roomID, eventType, "")
	switch {
	case messaging.IsMatrixError(err, messaging.ErrCodeNotFound):
		// Never set.
	case err != nil:
		return err
	default:
		value, err = stateString(content, field)
		if err != nil {
			return err
		}
	}
	out.emit(RoomDetail{RoomID: roomID, Key: key, Value: value})
	return nil
}

func (e *Engine) roomMembers(ctx context.Context, out *emitter, session messaging.Session, roomID ref.RoomID) error {
	joined, err := session.GetRoomMembers(ctx, roomID)
	if err != nil {
		return err
	}
	members := make([]Member, 0, len(joined))
	for _, member := range joined {
		members = append(members, Member{
			UserID:      member.UserID,
			DisplayName: member.DisplayName,
			AvatarURL:   member.AvatarURL,
		})
	}
	out.emit(RoomMembers{RoomID: roomID, Members: members})
	return nil
}

// joinRoom joins a room and marks it so that the next initial sync
// selects it as the default room.
func (e *Engine) joinRoom(ctx context.Context, out *emitter, command JoinRoom) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	joined, err := session.JoinRoom(ctx, roomID)
	if err != nil {
		return err
	}
	e.state.setPendingJoin(joined)
	e.logger.Info("joined room", "room_id", joined)
	out.emit(JoinedRoom{RoomID: joined})
	return nil
}

func (e *Engine) leaveRoom(ctx context.Context, out *emitter, command LeaveRoom) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	if err := session.LeaveRoom(ctx, roomID); err != nil {
		return err
	}
	e.logger.Info("left room", "room_id", roomID)
	out.emit(LeftRoom{RoomID: roomID})
	return nil
}

func (e *Engine) markAsRead(ctx context.Context, out *emitter, command MarkAsRead) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	eventID, err := ref.ParseEventID(command.EventID)
	if err != nil {
		return invalid("event id", command.EventID, err)
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	if err := session.SendReadReceipt(ctx, roomID, eventID); err != nil {
		return err
	}
	out.emit(MarkedAsRead{RoomID: roomID, EventID: eventID})
	return nil
}

func (e *Engine) setRoomName(ctx context.Context, out *emitter, command SetRoomName) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	_, err = session.SendStateEvent(ctx, roomID, ref.EventTypeRoomName, "",
		messaging.RoomNameContent{Name: command.Name})
	if err != nil {
		return err
	}
	out.emit(RoomNameSet{RoomID: roomID, Name: command.Name})
	return nil
}

func (e *Engine) setRoomTopic(ctx context.Context, out *emitter, command SetRoomTopic) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	_, err = session.SendStateEvent(ctx, roomID, ref.EventTypeRoomTopic, "",
		messaging.RoomTopicContent{Topic: command.Topic})
	if err != nil {
		return err
	}
	out.emit(RoomTopicSet{RoomID: roomID, Topic: command.Topic})
	return nil
}
