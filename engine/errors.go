// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/bureau-foundation/chatcore/lib/netutil"
	"github.com/bureau-foundation/chatcore/messaging"
)

// ErrNotAuthenticated is returned by operations that need a session
// when no login, registration, or guest entry has succeeded.
var ErrNotAuthenticated = errors.New("engine: not authenticated")

// ErrInvalidArgument is wrapped by errors for command arguments that
// fail validation (malformed room, event, user, or content ids).
var ErrInvalidArgument = errors.New("engine: invalid argument")

// ErrorKind classifies why an operation failed.
type ErrorKind int

const (
	// KindTransport covers connection failures, timeouts, and
	// cancellation.
	KindTransport ErrorKind = iota

	// KindMalformed covers responses that could not be decoded or lack
	// required fields.
	KindMalformed

	// KindAuth covers rejected credentials and missing or expired
	// sessions.
	KindAuth

	// KindLocalIO covers failures reading or writing local files.
	KindLocalIO

	// KindServer covers structured Matrix error responses other than
	// authentication failures.
	KindServer

	// KindInvalid covers command arguments that failed validation.
	KindInvalid
)

var kindNames = [...]string{
	KindTransport: "transport",
	KindMalformed: "malformed",
	KindAuth:      "auth",
	KindLocalIO:   "local_io",
	KindServer:    "server",
	KindInvalid:   "invalid",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText encodes the kind as its name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Family names the command family a failure belongs to. Callers route
// failures to the part of their interface that issued the command.
type Family string

const (
	FamilyLogin         Family = "login"
	FamilyGuestLogin    Family = "guest_login"
	FamilyDisplayName   Family = "display_name"
	FamilyAvatar        Family = "avatar"
	FamilySync          Family = "sync"
	FamilyRoomDetail    Family = "room_detail"
	FamilyRoomAvatar    Family = "room_avatar"
	FamilyRoomMessages  Family = "room_messages"
	FamilyRoomMembers   Family = "room_members"
	FamilySendMessage   Family = "send_message"
	FamilySetRoom       Family = "set_room"
	FamilyDirectory     Family = "directory"
	FamilyJoinRoom      Family = "join_room"
	FamilyMarkAsRead    Family = "mark_as_read"
	FamilyLeaveRoom     Family = "leave_room"
	FamilySetRoomName   Family = "set_room_name"
	FamilySetRoomTopic  Family = "set_room_topic"
	FamilySetRoomAvatar Family = "set_room_avatar"
	FamilyMedia         Family = "media"
	FamilyAttachFile    Family = "attach_file"
)

// Failure reports a failed operation. It is both a [Response] and an
// error.
type Failure struct {
	Family Family
	Kind   ErrorKind
	Err    error
}

func newFailure(family Family, err error) *Failure {
	return &Failure{Family: family, Kind: Classify(err), Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", f.Family, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// MarshalJSON renders the failure with the error as a string.
func (f *Failure) MarshalJSON() ([]byte, error) {
	message := ""
	if f.Err != nil {
		message = f.Err.Error()
	}
	return json.Marshal(struct {
		Family Family    `json:"family"`
		Kind   ErrorKind `json:"kind"`
		Error  string    `json:"error"`
	}{f.Family, f.Kind, message})
}

// Classify maps an error chain onto an [ErrorKind].
func Classify(err error) ErrorKind {
	if errors.Is(err, ErrNotAuthenticated) {
		return KindAuth
	}
	if errors.Is(err, ErrInvalidArgument) {
		return KindInvalid
	}

	var matrixErr *messaging.MatrixError
	if errors.As(err, &matrixErr) {
		if matrixErr.IsAuth() {
			return KindAuth
		}
		return KindServer
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, messaging.ErrMalformedResponse) ||
		errors.Is(err, netutil.ErrTooLarge) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) {
		return KindMalformed
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return KindLocalIO
	}

	// Connection failures (*url.Error, net.Error) and cancellation land
	// here along with anything unrecognized.
	return KindTransport
}

// invalid wraps a validation error so that it classifies as
// [KindInvalid].
func invalid(what, raw string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrInvalidArgument, what, raw, err)
}
