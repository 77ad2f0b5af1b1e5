// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

// maxHistoryPages bounds how many pages one history request walks
// through while looking for messages among other events.
const maxHistoryPages = 20

// historyPage is the result of walking backward through a room's
// history.
type historyPage struct {
	// messages are oldest first.
	messages []Message

	// start is the token for the next backward page. It is never
	// replaced by an empty token once one is known.
	start string

	// end is the start token of the first response: the newest point
	// covered.
	end string

	// exhausted is set when the server returned an empty chunk or no
	// end token.
	exhausted bool
}

// fetchHistory pages backward from from ("" for the live edge) until at
// least minimum messages are collected or history runs out.
func (e *Engine) fetchHistory(ctx context.Context, session messaging.Session, roomID ref.RoomID, from string, minimum int) (historyPage, error) {
	page := historyPage{start: from}
	var newestFirst []Message
	for pages := 0; pages < maxHistoryPages; pages++ {
		response, err := session.RoomMessages(ctx, roomID, messaging.RoomMessagesOptions{
			From:      from,
			Direction: "b",
			Limit:     e.config.TimelinePageSize,
		})
		if err != nil {
			return historyPage{}, err
		}
		if pages == 0 {
			page.end = response.Start
		}
		newestFirst = append(newestFirst, e.messagesFromEvents(roomID, response.Chunk)...)

		if len(response.Chunk) == 0 || response.End == "" {
			page.exhausted = true
			break
		}
		page.start = response.End
		from = response.End
		if len(newestFirst) >= minimum {
			break
		}
	}

	slices.Reverse(newestFirst)
	page.messages = newestFirst
	if page.messages == nil {
		page.messages = []Message{}
	}
	return page, nil
}

// pagerQueue runs history fetches one at a time in the order the
// dispatcher accepted them, so each fetch starts from the token the
// previous one committed.
type pagerQueue struct {
	mutex sync.Mutex
	tail  chan struct{}
}

// enqueue reserves the next slot. It must be called on the dispatcher
// goroutine. The returned channel closes when every earlier slot has
// finished; done must be called exactly once when this slot finishes.
func (q *pagerQueue) enqueue() (ready <-chan struct{}, done func()) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	previous := q.tail
	if previous == nil {
		previous = make(chan struct{})
		close(previous)
	}
	mine := make(chan struct{})
	q.tail = mine
	return previous, func() { close(mine) }
}

// spawnPager runs work on a worker once every earlier pager job has
// finished. A job finishes after its response is delivered, so pages
// reach the caller in acceptance order.
func (e *Engine) spawnPager(ctx context.Context, out *emitter, work func() (Response, error)) {
	ready, done := e.pager.enqueue()
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		defer done()
		select {
		case <-ready:
		case <-ctx.Done():
			return
		}
		response, err := work()
		e.deliver(out, FamilyRoomMessages, response, err)
	}()
}

// initialMessages opens a new window on roomID and loads its most
// recent messages on a worker. If another window is opened before the
// load commits, the load reports nothing.
func (e *Engine) initialMessages(ctx context.Context, out *emitter, session messaging.Session, roomID ref.RoomID) {
	window := e.state.openWindow(roomID)
	e.spawnPager(ctx, out, func() (Response, error) {
		page, err := e.fetchHistory(ctx, session, roomID, "", e.config.TimelineMinimum)
		if err != nil {
			return nil, err
		}
		next := timelineWindow{
			roomID:     roomID,
			start:      page.start,
			end:        page.end,
			exhausted:  page.exhausted,
			generation: window.generation,
		}
		if !e.state.commitWindow(window, next) {
			e.logger.Debug("timeline window superseded", "room_id", roomID)
			return nil, nil
		}
		return RoomMessagesInit{RoomID: roomID, Messages: page.messages}, nil
	})
}

// olderMessages fetches one backward page of the active room. The
// window is read after every earlier fetch has committed, so repeated
// requests walk strictly older. Once the start of history is reached it
// answers with an empty page without contacting the server.
func (e *Engine) olderMessages(ctx context.Context, out *emitter, command FetchOlderMessages) error {
	roomID, err := parseRoomID(command.RoomID)
	if err != nil {
		return err
	}
	session, err := e.state.current()
	if err != nil {
		return err
	}
	if window := e.state.timeline(); window.roomID != roomID {
		return fmt.Errorf("%w: %s is not the active room", ErrInvalidArgument, roomID)
	}

	e.spawnPager(ctx, out, func() (Response, error) {
		window := e.state.timeline()
		if window.roomID != roomID {
			e.logger.Debug("timeline window moved before fetch", "room_id", roomID)
			return nil, nil
		}
		if window.exhausted {
			return RoomMessagesOlder{RoomID: roomID, Messages: []Message{}}, nil
		}
		if window.start == "" {
			// The initial load failed, so there is no position to page from.
			return nil, fmt.Errorf("%w: no history position for %s, the initial load did not complete", ErrInvalidArgument, roomID)
		}
		page, err := e.fetchHistory(ctx, session, roomID, window.start, 1)
		if err != nil {
			return nil, err
		}
		next := window
		next.start = page.start
		next.exhausted = page.exhausted
		if !e.state.commitWindow(window, next) {
			e.logger.Debug("timeline window moved during fetch", "room_id", roomID)
			return nil, nil
		}
		return RoomMessagesOlder{RoomID: roomID, Messages: page.messages}, nil
	})
	return nil
}
