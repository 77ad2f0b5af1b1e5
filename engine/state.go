// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"sync"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

// timelineWindow is the span of the active room's history the caller
// has seen. start is the pagination token for the next backward page;
// end is the token at the live edge when the window was opened.
type timelineWindow struct {
	roomID     ref.RoomID
	start      string
	end        string
	exhausted  bool
	generation uint64
}

// sessionState is the engine's mutable state. Every method holds the
// mutex for the duration of one read or write and never across I/O.
type sessionState struct {
	mutex sync.Mutex

	session messaging.Session
	host    string

	// retired holds sessions replaced by a later authentication. They
	// stay open until shutdown because workers may still be using them.
	retired []messaging.Session

	syncCursor      string
	sequence        uint64
	window          timelineWindow
	directoryCursor string
	pendingJoin     ref.RoomID
}

// install makes session the current one and resets every cursor, since
// cursors issued to one account mean nothing to another.
func (s *sessionState) install(session messaging.Session, host string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session != nil {
		s.retired = append(s.retired, s.session)
	}
	s.session = session
	s.host = host
	s.syncCursor = ""
	s.window = timelineWindow{generation: s.window.generation + 1}
	s.directoryCursor = ""
	s.pendingJoin = ref.RoomID{}
}

// current returns the session, or ErrNotAuthenticated.
func (s *sessionState) current() (messaging.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session == nil {
		return nil, ErrNotAuthenticated
	}
	return s.session, nil
}

func (s *sessionState) serverHost() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.host
}

func (s *sessionState) cursor() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.syncCursor
}

func (s *sessionState) setCursor(cursor string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.syncCursor = cursor
}

// nextSequence returns the next local message sequence number,
// starting at 1.
func (s *sessionState) nextSequence() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sequence++
	return s.sequence
}

// openWindow starts a new, empty window on roomID and returns it.
// Commits against any earlier window are rejected from now on.
func (s *sessionState) openWindow(roomID ref.RoomID) timelineWindow {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.window = timelineWindow{roomID: roomID, generation: s.window.generation + 1}
	return s.window
}

func (s *sessionState) timeline() timelineWindow {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.window
}

// commitWindow replaces the window with next if the stored window is
// still previous (same generation and start token). It reports whether
// the commit happened.
func (s *sessionState) commitWindow(previous, next timelineWindow) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.window.generation != previous.generation || s.window.start != previous.start {
		return false
	}
	s.window = next
	return true
}

func (s *sessionState) directory() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.directoryCursor
}

func (s *sessionState) setDirectory(cursor string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.directoryCursor = cursor
}

func (s *sessionState) pendingJoinRoom() ref.RoomID {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.pendingJoin
}

func (s *sessionState) setPendingJoin(roomID ref.RoomID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pendingJoin = roomID
}

// clearPendingJoin clears the marker if it still names roomID.
func (s *sessionState) clearPendingJoin(roomID ref.RoomID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.pendingJoin == roomID {
		s.pendingJoin = ref.RoomID{}
	}
}

// close releases every session the engine has held.
func (s *sessionState) close() error {
	s.mutex.Lock()
	sessions := append(s.retired, s.session)
	s.retired = nil
	s.session = nil
	s.mutex.Unlock()

	var errs []error
	for _, session := range sessions {
		if session == nil {
			continue
		}
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
