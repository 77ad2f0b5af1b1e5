// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sort"

	"github.com/bureau-foundation/chatcore/messaging"
)

// protocols lists the home server's own directory followed by every
// bridged network instance the server advertises.
func (e *Engine) protocols(ctx context.Context, out *emitter) error {
	session, err := e.state.current()
	if err != nil {
		return err
	}
	advertised, err := session.ThirdPartyProtocols(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(advertised))
	for name := range advertised {
		names = append(names, name)
	}
	sort.Strings(names)

	result := Protocols{Protocols: []Protocol{{ID: "", Description: e.state.serverHost()}}}
	for _, name := range names {
		for _, instance := range advertised[name].Instances {
			result.Protocols = append(result.Protocols, Protocol{
				ID:          instance.InstanceID,
				Description: instance.Description,
			})
		}
	}
	out.emit(result)
	return nil
}

// directorySearch fetches one page of public rooms. A new search starts
// from the first page; More continues from the stored cursor and
// reports an empty page when there is none.
func (e *Engine) directorySearch(ctx context.Context, out *emitter, command DirectorySearch) error {
	session, err := e.state.current()
	if err != nil {
		return err
	}

	request := messaging.PublicRoomsRequest{Limit: e.config.DirectoryPageSize}
	if command.More {
		since := e.state.directory()
		if since == "" {
			out.emit(DirectoryRooms{Rooms: []Room{}, More: true})
			return nil
		}
		request.Since = since
	} else {
		e.state.setDirectory("")
		if command.Query != "" {
			request.Filter = &messaging.PublicRoomsFilter{GenericSearchTerm: command.Query}
		}
		request.ThirdPartyInstanceID = command.Protocol
	}

	response, err := session.PublicRooms(ctx, request)
	if err != nil {
		return err
	}
	e.state.setDirectory(response.NextBatch)

	result := DirectoryRooms{
		Rooms:   make([]Room, 0, len(response.Chunk)),
		More:    command.More,
		HasMore: response.NextBatch != "",
	}
	for _, public := range response.Chunk {
		result.Rooms = append(result.Rooms, Room{
			ID:            public.RoomID,
			Name:          public.Name,
			AvatarURL:     public.AvatarURL,
			Topic:         public.Topic,
			Alias:         public.CanonicalAlias,
			GuestCanJoin:  public.GuestCanJoin,
			WorldReadable: public.WorldReadable,
			MemberCount:   public.NumJoinedMembers,
		})
	}
	out.emit(result)
	return nil
}
