// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/chatcore/lib/netutil"
	"github.com/bureau-foundation/chatcore/lib/ref"
	"github.com/bureau-foundation/chatcore/lib/secret"
	"github.com/bureau-foundation/chatcore/lib/version"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver (e.g., "https://matrix.example.org").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// DeviceDisplayName is sent as initial_device_display_name on login
	// and registration. Empty means "chatcore".
	DeviceDisplayName string
}

// Client is an unauthenticated Matrix client.
// It holds the homeserver URL and HTTP transport, shared across sessions.
type Client struct {
	baseURL           string
	host              string
	httpClient        *http.Client
	logger            *slog.Logger
	deviceDisplayName string
}

// NewClient creates a new unauthenticated Matrix client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}

	// We store the string form (with trailing slash stripped) and build
	// request URLs by direct concatenation. url.URL.String() re-encodes
	// Path even when RawPath is set, which double-encodes room IDs.
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must be http or https", config.HomeserverURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deviceDisplayName := config.DeviceDisplayName
	if deviceDisplayName == "" {
		deviceDisplayName = "chatcore"
	}

	return &Client{
		baseURL:           strings.TrimRight(config.HomeserverURL, "/"),
		host:              parsed.Hostname(),
		httpClient:        httpClient,
		logger:            logger,
		deviceDisplayName: deviceDisplayName,
	}, nil
}

// BaseURL returns the homeserver URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Host returns the host name of the homeserver URL, without port.
func (c *Client) Host() string {
	return c.host
}

// Register creates a new account and returns a DirectSession for it.
//
// The registration flow uses the User-Interactive Authentication API (UIAA):
//   - First request returns 401 with the available flows and a session.
//   - Second request completes the m.login.registration_token stage when a
//     token was supplied, m.login.dummy otherwise.
func (c *Client) Register(ctx context.Context, request RegisterRequest) (*DirectSession, error) {
	if request.Username == "" {
		return nil, fmt.Errorf("messaging: username is required for registration")
	}
	if request.Password == nil {
		return nil, fmt.Errorf("messaging: password is required for registration")
	}

	// Password is converted to string at the JSON serialization boundary.
	// The heap copy is short-lived and exists only during the HTTP call.
	firstAttempt := map[string]any{
		"username":                    request.Username,
		"password":                    request.Password.String(),
		"initial_device_display_name": c.deviceDisplayName,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/register", nil, firstAttempt)
	if err == nil {
		// The server has no auth requirements.
		return c.sessionFromAuthBody(body, "register")
	}

	if !isUnauthorizedUIAA(err) {
		return nil, fmt.Errorf("messaging: registration failed: %w", err)
	}

	// The body is returned alongside the error by doRequest.
	sessionID, err := extractUIAASession(body)
	if err != nil {
		return nil, err
	}

	auth := map[string]any{
		"type":    "m.login.dummy",
		"session": sessionID,
	}
	if request.RegistrationToken != nil {
		auth["type"] = "m.login.registration_token"
		auth["token"] = request.RegistrationToken.String()
	}
	completeRequest := map[string]any{
		"username":                    request.Username,
		"password":                    request.Password.String(),
		"initial_device_display_name": c.deviceDisplayName,
		"auth":                        auth,
	}
	body, err = c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/register", nil, completeRequest)
	if err != nil {
		return nil, fmt.Errorf("messaging: registration failed: %w", err)
	}

	session, err := c.sessionFromAuthBody(body, "register")
	if err != nil {
		return nil, err
	}
	c.logger.Info("registered matrix account",
		"user_id", session.userID,
		"device_id", session.deviceID,
	)
	return session, nil
}

// RegisterGuest creates a guest account (POST /register?kind=guest).
// Servers that disallow guests answer with M_GUEST_ACCESS_FORBIDDEN.
func (c *Client) RegisterGuest(ctx context.Context) (*DirectSession, error) {
	query := url.Values{"kind": {"guest"}}
	requestBody := map[string]any{
		"initial_device_display_name": c.deviceDisplayName,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/register", nil, requestBody, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: guest registration failed: %w", err)
	}

	session, err := c.sessionFromAuthBody(body, "guest register")
	if err != nil {
		return nil, err
	}
	c.logger.Info("registered guest account", "user_id", session.userID)
	return session, nil
}

// Login authenticates with username and password, returning a DirectSession.
// The password Buffer is read but not closed. The caller retains ownership.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*DirectSession, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	// Password is converted to string at the JSON serialization boundary.
	loginRequest := LoginRequest{
		Type: "m.login.password",
		Identifier: UserIdentifier{
			Type: "m.id.user",
			User: username,
		},
		Password:                 password.String(),
		InitialDeviceDisplayName: c.deviceDisplayName,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", nil, loginRequest)
	if err != nil {
		return nil, fmt.Errorf("messaging: login failed: %w", err)
	}

	session, err := c.sessionFromAuthBody(body, "login")
	if err != nil {
		return nil, err
	}
	c.logger.Info("logged in to matrix",
		"user_id", session.userID,
		"device_id", session.deviceID,
	)
	return session, nil
}

// SessionFromToken creates a DirectSession from an existing access token
// string, for resuming a session whose credentials the caller stored.
// The token is moved into mmap-backed memory (locked against swap, excluded
// from core dumps).
//
// This does NOT validate the token. The first API call will fail if it is invalid.
// The caller must call Close on the returned DirectSession when done.
func (c *Client) SessionFromToken(userID ref.UserID, deviceID, accessToken string) (*DirectSession, error) {
	tokenBuffer, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: tokenBuffer,
		userID:      userID,
		deviceID:    deviceID,
	}, nil
}

func (c *Client) sessionFromAuthBody(body []byte, operation string) (*DirectSession, error) {
	var auth AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("%w: parse %s response: %w", ErrMalformedResponse, operation, err)
	}
	if auth.AccessToken == "" || auth.UserID.IsZero() {
		return nil, fmt.Errorf("%w: %s response missing access_token or user_id", ErrMalformedResponse, operation)
	}

	tokenBuffer, err := secret.NewFromString(auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: tokenBuffer,
		userID:      auth.UserID,
		deviceID:    auth.DeviceID,
	}, nil
}

// buildURL joins the base URL, path, and query. The access token, when
// present, travels as the access_token query parameter.
func (c *Client) buildURL(path string, accessToken *secret.Buffer, query url.Values) string {
	if accessToken != nil {
		merged := url.Values{}
		for key, values := range query {
			merged[key] = values
		}
		merged.Set("access_token", accessToken.String())
		query = merged
	}
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	return requestURL
}

// doRequest performs an HTTP request to the homeserver and returns the response body.
// On 2xx, returns the body. On 4xx/5xx, returns the body and a *MatrixError.
// accessToken may be nil for unauthenticated endpoints.
// query may be omitted for endpoints without query parameters.
func (c *Client) doRequest(ctx context.Context, method, path string, accessToken *secret.Buffer, requestBody any, query ...url.Values) ([]byte, error) {
	var bodyReader io.Reader
	contentType := ""
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	var values url.Values
	if len(query) > 0 {
		values = query[0]
	}

	response, err := c.send(ctx, method, path, accessToken, values, contentType, bodyReader)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}
	return responseBody, parseMatrixError(response.StatusCode, responseBody)
}

// doRequestRaw performs an HTTP request with a raw body (for media upload).
func (c *Client) doRequestRaw(ctx context.Context, method, path string, accessToken *secret.Buffer, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	response, err := c.send(ctx, method, path, accessToken, query, contentType, body)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}
	return nil, parseMatrixError(response.StatusCode, responseBody)
}

// doStream performs a GET and copies a successful response body into
// destination, up to limit bytes. Returns the response media type.
func (c *Client) doStream(ctx context.Context, path string, accessToken *secret.Buffer, query url.Values, destination io.Writer, limit int64) (string, error) {
	response, err := c.send(ctx, http.MethodGet, path, accessToken, query, "", nil)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		responseBody, readErr := netutil.ReadResponse(response.Body)
		if readErr != nil {
			return "", fmt.Errorf("messaging: failed to read response body: %w", readErr)
		}
		return "", parseMatrixError(response.StatusCode, responseBody)
	}

	if _, err := netutil.CopyLimited(destination, response.Body, limit); err != nil {
		return "", fmt.Errorf("messaging: reading %s: %w", path, err)
	}

	mediaType := response.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	return mediaType, nil
}

func (c *Client) send(ctx context.Context, method, path string, accessToken *secret.Buffer, query url.Values, contentType string, body io.Reader) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, accessToken, query), body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(request)
	if err != nil {
		// The *url.Error from Do repeats the full URL, token included.
		return nil, fmt.Errorf("messaging: request to %s %s failed: %w", method, path, redactToken(err))
	}
	return response, nil
}

// parseMatrixError builds the error for a non-2xx response. All Matrix
// error responses use the same JSON shape. A non-JSON body (a proxy
// error page) still yields a *MatrixError so callers can classify it
// by status, with the raw body as the message.
func parseMatrixError(statusCode int, body []byte) *MatrixError {
	var matrixErr MatrixError
	if jsonErr := json.Unmarshal(body, &matrixErr); jsonErr != nil {
		matrixErr = MatrixError{Message: strings.TrimSpace(string(body))}
	}
	matrixErr.StatusCode = statusCode
	return &matrixErr
}

// redactToken strips the query string from a *url.Error's URL.
func redactToken(err error) error {
	urlErr, ok := err.(*url.Error) //nolint:errorlint // Do returns *url.Error directly
	if !ok {
		return err
	}
	redacted := *urlErr
	if index := strings.IndexByte(redacted.URL, '?'); index >= 0 {
		redacted.URL = redacted.URL[:index]
	}
	return &redacted
}

// isUnauthorizedUIAA checks if an error is a 401 from the UIAA flow.
// This is the expected response when registration requires authentication stages.
func isUnauthorizedUIAA(err error) bool {
	matrixErr, ok := err.(*MatrixError) //nolint:errorlint // direct type assertion, no wrapping
	if !ok {
		return false
	}
	return matrixErr.StatusCode == http.StatusUnauthorized
}

// extractUIAASession extracts the session ID from a UIAA 401 response.
func extractUIAASession(body []byte) (string, error) {
	var uiaaResponse struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(body, &uiaaResponse); err != nil {
		return "", fmt.Errorf("%w: parse UIAA response: %w", ErrMalformedResponse, err)
	}
	if uiaaResponse.Session == "" {
		return "", fmt.Errorf("%w: UIAA response missing session ID", ErrMalformedResponse)
	}
	return uiaaResponse.Session, nil
}
