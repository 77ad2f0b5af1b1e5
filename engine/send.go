// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/media"
	"github.com/bureau-foundation/chatcore/messaging"
)

// sendMessage sends one message under the next transaction id.
func (e *Engine) sendMessage(ctx context.Context, out *emitter, command SendMessage) error {
	message := command.Message
	if message.RoomID.IsZero() {
		return fmt.Errorf("%w: message has no room id", ErrInvalidArgument)
	}
	roomID := message.RoomID
	session, err := e.state.current()
	if err != nil {
		return err
	}

	content := messaging.NewTextMessage(message.Body)
	if message.Type != "" {
		content.MsgType = message.Type
	}
	content.URL = message.MediaURL

	transactionID := fmt.Sprintf("%s-%d", e.config.TransactionPrefix, e.state.nextSequence())
	eventID, err := session.SendMessage(ctx, roomID, transactionID, content)
	if err != nil {
		return err
	}
	e.logger.Debug("message sent",
		"room_id", roomID,
		"transaction_id", transactionID,
		"event_id", eventID,
	)
	out.emit(MessageSent{RoomID: roomID, TransactionID: transactionID, EventID: eventID})
	return nil
}

// attachFile uploads a local file and reports a provisional message
// that references it. The file is read before the worker starts so
// that local errors are reported as AttachFile failures immediately.
func (e *Engine) attachFile(ctx context.Context, out *emitter, command AttachFile) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(command.Path)
	if err != nil {
		return err
	}

	name := filepath.Base(command.Path)
	classification := media.Classify(data)
	e.spawn(out, FamilyAttachFile, func() (Response, error) {
		uri, err := session.UploadMedia(ctx, classification.ContentType, name, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return FileAttached{
			RoomID: roomID,
			Message: Message{
				Sender:    session.UserID(),
				RoomID:    roomID,
				Type:      classification.MsgType,
				Body:      name,
				Timestamp: e.clock.Now(),
				MediaURL:  uri.String(),
			},
		}, nil
	})
	return nil
}

// setRoomAvatar uploads a local image and points the room's avatar
// state at it.
func (e *Engine) setRoomAvatar(ctx context.Context, out *emitter, command SetRoomAvatar) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(command.Path)
	if err != nil {
		return err
	}

	name := filepath.Base(command.Path)
	contentType := media.Classify(data).ContentType
	e.spawn(out, FamilySetRoomAvatar, func() (Response, error) {
		uri, err := session.UploadMedia(ctx, contentType, name, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		_, err = session.SendStateEvent(ctx, roomID, ref.EventTypeRoomAvatar, "",
			messaging.RoomAvatarContent{URL: uri.String()})
		if err != nil {
			return nil, err
		}
		return RoomAvatarSet{RoomID: roomID, AvatarURL: uri.String()}, nil
	})
	return nil
}
