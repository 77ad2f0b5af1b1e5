// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/chatcore/lib/clock"
	"github.com/bureau-foundation/chatcore/media"
)

//go:embed filter_initial.jsonc
var initialFilterSource []byte

// Defaults applied to zero-valued Config fields.
const (
	DefaultSyncTimeout       = 30 * time.Second
	DefaultTimelinePageSize  = 10
	DefaultTimelineMinimum   = 10
	DefaultDirectoryPageSize = 20
	DefaultThumbnailSize     = 64
)

// Config holds the parameters for New.
type Config struct {
	// Homeserver is the server URL used by authentication commands
	// that do not name one.
	Homeserver string

	// HTTPClient is used for all homeserver requests. If nil,
	// http.DefaultClient is used. Its timeout must exceed SyncTimeout.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger

	// Clock stamps provisional messages. If nil, the real clock is used.
	Clock clock.Clock

	// Cache stores downloaded media. Required.
	Cache *media.Cache

	// SyncTimeout is the long-poll timeout of incremental syncs.
	SyncTimeout time.Duration

	// TimelinePageSize is the number of events requested per history
	// page; TimelineMinimum is the number of messages the initial
	// window tries to collect.
	TimelinePageSize int
	TimelineMinimum  int

	// DirectoryPageSize is the number of rooms requested per directory
	// page.
	DirectoryPageSize int

	// ThumbnailSize is the width and height requested for thumbnails
	// and avatars.
	ThumbnailSize int

	// DeviceDisplayName is sent when logging in or registering.
	DeviceDisplayName string

	// TransactionPrefix prefixes the transaction id of every sent
	// message. Empty means a prefix derived from the start time, which
	// keeps ids unique across restarts.
	TransactionPrefix string
}

// Engine executes commands against a Matrix homeserver. Create one with
// New and drive it with Run.
type Engine struct {
	config        Config
	logger        *slog.Logger
	clock         clock.Clock
	httpClient    *http.Client
	resolver      *media.Resolver
	initialFilter string
	state         sessionState
	pager         pagerQueue
	workers       sync.WaitGroup
}

// New validates config, fills in defaults, and returns an Engine.
func New(config Config) (*Engine, error) {
	if config.Cache == nil {
		return nil, fmt.Errorf("engine: Cache is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.SyncTimeout <= 0 {
		config.SyncTimeout = DefaultSyncTimeout
	}
	if config.TimelinePageSize <= 0 {
		config.TimelinePageSize = DefaultTimelinePageSize
	}
	if config.TimelineMinimum <= 0 {
		config.TimelineMinimum = DefaultTimelineMinimum
	}
	if config.DirectoryPageSize <= 0 {
		config.DirectoryPageSize = DefaultDirectoryPageSize
	}
	if config.ThumbnailSize <= 0 {
		config.ThumbnailSize = DefaultThumbnailSize
	}
	if config.TransactionPrefix == "" {
		config.TransactionPrefix = fmt.Sprintf("chatcore%d", config.Clock.Now().UnixMilli())
	}

	filter, err := compileFilter(initialFilterSource)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:        config,
		logger:        config.Logger,
		clock:         config.Clock,
		httpClient:    config.HTTPClient,
		resolver:      media.NewResolver(config.Cache, config.ThumbnailSize),
		initialFilter: filter,
	}, nil
}

// compileFilter strips comments and trailing commas from a JSONC filter
// document and compacts it for use as a query parameter.
func compileFilter(source []byte) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, jsonc.ToJSON(source)); err != nil {
		return "", fmt.Errorf("engine: invalid sync filter: %w", err)
	}
	return compact.String(), nil
}

// Run consumes commands until Shutdown is received, commands is closed,
// or ctx is cancelled, writing every outcome to responses. It then waits
// for spawned workers and releases the session. Run never closes
// responses and must not be called more than once.
//
// Cancelling ctx aborts in-flight requests; workers abandon responses
// they cannot deliver. Run returns ctx.Err() in that case and nil
// otherwise.
//
// Workers still running at Shutdown deliver their responses before Run
// returns. Callers must keep draining responses until Run returns, or
// cancel ctx; otherwise Run blocks on a worker waiting to send.
func (e *Engine) Run(ctx context.Context, commands <-chan Command, responses chan<- Response) error {
	out := &emitter{ctx: ctx, responses: responses}
	defer func() {
		e.workers.Wait()
		if err := e.state.close(); err != nil {
			e.logger.Warn("closing sessions failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case command, ok := <-commands:
			if !ok {
				e.logger.Debug("command channel closed")
				return nil
			}
			if _, stop := command.(Shutdown); stop {
				e.logger.Debug("shutdown requested")
				return nil
			}
			e.dispatch(ctx, out, command)
		}
	}
}

// dispatch routes one command. Operations return an error for the
// failure they want reported; sub-operations of SetActiveRoom report
// their own.
func (e *Engine) dispatch(ctx context.Context, out *emitter, command Command) {
	var err error
	switch command := command.(type) {
	case Login:
		err = e.login(ctx, out, command)
	case Register:
		err = e.register(ctx, out, command)
	case ResumeSession:
		err = e.resumeSession(out, command)
	case GuestEntry:
		err = e.guestEntry(ctx, out, command)
	case GetDisplayName:
		err = e.displayName(ctx, out)
	case GetAvatar:
		err = e.avatar(ctx, out)
	case Sync:
		err = e.sync(ctx, out)
	case ForcedSync:
		e.state.setCursor("")
		err = e.sync(ctx, out)
	case FetchOlderMessages:
		err = e.olderMessages(ctx, out, command)
	case GetRoomAvatar:
		err = e.roomAvatar(ctx, out, command.RoomID)
	case GetThumbnail:
		e.thumbnail(ctx, command)
	case GetMedia:
		err = e.media(ctx, out, command)
	case GetUserInfo:
		e.userInfo(ctx, command)
	case SendMessage:
		err = e.sendMessage(ctx, out, command)
	case SetActiveRoom:
		err = e.setActiveRoom(ctx, out, command)
	case DirectoryListProtocols:
		err = e.protocols(ctx, out)
	case DirectorySearch:
		err = e.directorySearch(ctx, out, command)
	case JoinRoom:
		err = e.joinRoom(ctx, out, command)
	case MarkAsRead:
		err = e.markAsRead(ctx, out, command)
	case LeaveRoom:
		err = e.leaveRoom(ctx, out, command)
	case SetRoomName:
		err = e.setRoomName(ctx, out, command)
	case SetRoomTopic:
		err = e.setRoomTopic(ctx, out, command)
	case SetRoomAvatar:
		err = e.setRoomAvatar(ctx, out, command)
	case AttachFile:
		err = e.attachFile(ctx, out, command)
	default:
		e.logger.Warn("ignoring unknown command", "command", fmt.Sprintf("%T", command))
		return
	}
	if err != nil {
		family := familyOf(command)
		e.logger.Debug("command failed", "family", family, "error", err)
		out.fail(family, err)
	}
}

// familyOf returns the failure family for errors returned directly by
// an operation.
func familyOf(command Command) Family {
	switch command.(type) {
	case Login, Register, ResumeSession:
		return FamilyLogin
	case GuestEntry:
		return FamilyGuestLogin
	case GetDisplayName:
		return FamilyDisplayName
	case GetAvatar:
		return FamilyAvatar
	case Sync, ForcedSync:
		return FamilySync
	case FetchOlderMessages:
		return FamilyRoomMessages
	case GetRoomAvatar:
		return FamilyRoomAvatar
	case GetThumbnail, GetMedia, GetUserInfo:
		return FamilyMedia
	case SendMessage:
		return FamilySendMessage
	case SetActiveRoom:
		return FamilySetRoom
	case DirectoryListProtocols, DirectorySearch:
		return FamilyDirectory
	case JoinRoom:
		return FamilyJoinRoom
	case MarkAsRead:
		return FamilyMarkAsRead
	case LeaveRoom:
		return FamilyLeaveRoom
	case SetRoomName:
		return FamilySetRoomName
	case SetRoomTopic:
		return FamilySetRoomTopic
	case SetRoomAvatar:
		return FamilySetRoomAvatar
	case AttachFile:
		return FamilyAttachFile
	}
	return ""
}

// spawn runs work on a tracked worker goroutine. A returned error is
// reported as a Failure in family; a nil response reports nothing.
func (e *Engine) spawn(out *emitter, family Family, work func() (Response, error)) {
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		response, err := work()
		e.deliver(out, family, response, err)
	}()
}

func (e *Engine) deliver(out *emitter, family Family, response Response, err error) {
	if err != nil {
		e.logger.Debug("worker failed", "family", family, "error", err)
		out.fail(family, err)
		return
	}
	if response != nil {
		out.emit(response)
	}
}

// emitter delivers responses, giving up when the context is cancelled
// so that a caller that stopped reading cannot wedge shutdown.
type emitter struct {
	ctx       context.Context
	responses chan<- Response
}

func (o *emitter) emit(response Response) {
	select {
	case o.responses <- response:
	case <-o.ctx.Done():
	}
}

func (o *emitter) fail(family Family, err error) {
	o.emit(newFailure(family, err))
}

// reply delivers a value on a caller-supplied channel under the same
// cancellation rule as emit.
func reply[T any](ctx context.Context, ch chan<- T, value T) {
	if ch == nil {
		return
	}
	select {
	case ch <- value:
	case <-ctx.Done():
	}
}
