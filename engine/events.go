// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/json"
	"time"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/media"
	"github.com/bureau-foundation/chatcore/messaging"
)

// decodeEvents decodes raw events one at a time, logging and skipping
// those that fail so that one bad event cannot hide the rest.
func (e *Engine) decodeEvents(roomID ref.RoomID, raws []json.RawMessage) []messaging.Event {
	events := make([]messaging.Event, 0, len(raws))
	for _, raw := range raws {
		var event messaging.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			e.logger.Warn("skipping undecodable event", "room_id", roomID, "error", err)
			continue
		}
		events = append(events, event)
	}
	return events
}

// messageFromEvent converts an m.room.message timeline event. It
// reports false for other event types and for redacted or malformed
// message content.
func (e *Engine) messageFromEvent(roomID ref.RoomID, event messaging.Event) (Message, bool) {
	if event.Type != ref.EventTypeMessage || event.IsState() {
		return Message{}, false
	}
	var content messaging.MessageContent
	if err := json.Unmarshal(event.Content, &content); err != nil {
		e.logger.Warn("skipping message with undecodable content",
			"room_id", roomID, "event_id", event.EventID, "error", err)
		return Message{}, false
	}
	if content.MsgType == "" {
		return Message{}, false
	}

	message := Message{
		ID:        event.EventID,
		Sender:    event.Sender,
		RoomID:    roomID,
		Type:      content.MsgType,
		Body:      content.Body,
		Timestamp: time.UnixMilli(event.OriginServerTS).UTC(),
		MediaURL:  content.URL,
	}
	if event.Unsigned != nil {
		message.TransactionID = event.Unsigned.TransactionID
	}
	if content.MsgType == media.MsgTypeImage {
		message.ThumbnailPath = e.cachedThumbnail(content.URL)
	}
	return message, true
}

// messagesFromEvents converts the message events among raws, keeping
// their order.
func (e *Engine) messagesFromEvents(roomID ref.RoomID, raws []json.RawMessage) []Message {
	messages := []Message{}
	for _, event := range e.decodeEvents(roomID, raws) {
		if message, ok := e.messageFromEvent(roomID, event); ok {
			messages = append(messages, message)
		}
	}
	return messages
}

// cachedThumbnail returns the path of an already cached thumbnail for
// raw, or "". It never fetches; callers request missing thumbnails with
// GetThumbnail.
func (e *Engine) cachedThumbnail(raw string) string {
	uri, err := ref.ParseContentURI(raw)
	if err != nil {
		return ""
	}
	path, _ := e.resolver.Cache().Lookup(uri, media.VariantThumbnail)
	return path
}

// stateString decodes one string field of a state event's content.
func stateString(content json.RawMessage, field string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(content, &fields); err != nil {
		return "", err
	}
	value, _ := fields[field].(string)
	return value, nil
}
