// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/messaging"
)

func (e *Engine) login(ctx context.Context, out *emitter, command Login) error {
	if command.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	if command.Password == nil {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	client, err := e.client(command.Server)
	if err != nil {
		return err
	}
	session, err := client.Login(ctx, command.Username, command.Password)
	if err != nil {
		return err
	}
	e.authenticated(out, client, session, false)
	return nil
}

func (e *Engine) register(ctx context.Context, out *emitter, command Register) error {
	if command.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	if command.Password == nil {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	client, err := e.client(command.Server)
	if err != nil {
		return err
	}
	session, err := client.Register(ctx, messaging.RegisterRequest{
		Username:          command.Username,
		Password:          command.Password,
		RegistrationToken: command.RegistrationToken,
	})
	if err != nil {
		return err
	}
	e.authenticated(out, client, session, false)
	return nil
}

// resumeSession installs stored credentials. No request is made.
func (e *Engine) resumeSession(out *emitter, command ResumeSession) error {
	userID, err := ref.ParseUserID(command.UserID)
	if err != nil {
		return invalid("user id", command.UserID, err)
	}
	if command.AccessToken == nil || command.AccessToken.Len() == 0 {
		return fmt.Errorf("%w: access token is required", ErrInvalidArgument)
	}
	client, err := e.client(command.Server)
	if err != nil {
		return err
	}
	session, err := client.SessionFromToken(userID, command.DeviceID, command.AccessToken.String())
	if err != nil {
		return err
	}
	e.authenticated(out, client, session, false)
	return nil
}

func (e *Engine) guestEntry(ctx context.Context, out *emitter, command GuestEntry) error {
	client, err := e.client(command.Server)
	if err != nil {
		return err
	}
	session, err := client.RegisterGuest(ctx)
	if err != nil {
		return err
	}
	e.authenticated(out, client, session, true)
	return nil
}

// client builds an unauthenticated client for server, or for the
// configured homeserver when server is empty.
func (e *Engine) client(server string) (*messaging.Client, error) {
	if server == "" {
		server = e.config.Homeserver
	}
	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL:     server,
		HTTPClient:        e.httpClient,
		Logger:            e.logger,
		DeviceDisplayName: e.config.DeviceDisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: server %q: %v", ErrInvalidArgument, server, err)
	}
	return client, nil
}

func (e *Engine) authenticated(out *emitter, client *messaging.Client, session *messaging.DirectSession, guest bool) {
	e.state.install(session, client.Host())
	e.logger.Info("authenticated",
		"homeserver", client.BaseURL(),
		"user_id", session.UserID(),
		"device_id", session.DeviceID(),
		"guest", guest,
	)
	out.emit(Token{
		UserID:      session.UserID(),
		AccessToken: session.AccessToken(),
		DeviceID:    session.DeviceID(),
		Guest:       guest,
	})
}

func (e *Engine) displayName(ctx context.Context, out *emitter) error {
	session, err := e.state.current()
	if err != nil {
		return err
	}
	name, err := session.GetDisplayName(ctx, session.UserID())
	if err != nil && !messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
		return err
	}
	if name == "" {
		name = session.UserID().String()
	}
	out.emit(DisplayName{Name: name})
	return nil
}
