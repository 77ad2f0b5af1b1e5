// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PublicRooms queries the public room directory (POST /publicRooms).
func (s *DirectSession) PublicRooms(ctx context.Context, request PublicRoomsRequest) (*PublicRoomsResponse, error) {
	body, err := s.client.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/publicRooms", s.accessToken, request)
	if err != nil {
		return nil, fmt.Errorf("messaging: public rooms failed: %w", err)
	}

	var response PublicRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: parse public rooms response: %w", ErrMalformedResponse, err)
	}
	return &response, nil
}

// ThirdPartyProtocols lists the bridge protocols the homeserver knows,
// keyed by protocol name.
func (s *DirectSession) ThirdPartyProtocols(ctx context.Context) (map[string]ThirdPartyProtocol, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/thirdparty/protocols", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: third-party protocols failed: %w", err)
	}

	var response map[string]ThirdPartyProtocol
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: parse protocols response: %w", ErrMalformedResponse, err)
	}
	return response, nil
}
