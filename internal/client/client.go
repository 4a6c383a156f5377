package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qrparty/partyroom/internal/party"
)

// APIError is a non-2xx response from the action endpoint or a snapshot
// fetch, carrying the server's public error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the party room HTTP API and change feed.
type Client struct {
	baseURL string
	httpc   *http.Client
	dialer  *websocket.Dialer
	logger  *zap.SugaredLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zap.SugaredLogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the API at baseURL (e.g. "http://host:8080").
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type actionRequest struct {
	Action   string `json:"action"`
	Name     string `json:"name,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Code     string `json:"code,omitempty"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
}

type triggerResponse struct {
	OK    bool        `json:"ok"`
	Patch party.Patch `json:"patch"`
}

// Join registers with the server and returns the assigned player id.
// Pass the previously issued id to rejoin without losing position.
func (c *Client) Join(ctx context.Context, name, existingID string) (string, error) {
	var resp joinResponse
	err := c.postAction(ctx, actionRequest{Action: "join", Name: name, PlayerID: existingID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.PlayerID, nil
}

// Trigger submits a coded action and returns the patch the server applied,
// for optimistic local feedback.
func (c *Client) Trigger(ctx context.Context, playerID, code string) (party.Patch, error) {
	var resp triggerResponse
	err := c.postAction(ctx, actionRequest{Action: "trigger", PlayerID: playerID, Code: code}, &resp)
	if err != nil {
		return party.Patch{}, err
	}
	return resp.Patch, nil
}

// MoveTo translates a finished drag into a move trigger.
func (c *Client) MoveTo(ctx context.Context, playerID string, x, y float64) (party.Patch, error) {
	code := fmt.Sprintf("move:%.4f,%.4f", x, y)
	return c.Trigger(ctx, playerID, code)
}

func (c *Client) postAction(ctx context.Context, req actionRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/action", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post action: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FetchPlayers fetches the identity snapshot.
func (c *Client) FetchPlayers(ctx context.Context) ([]party.Player, error) {
	var players []party.Player
	if err := c.getJSON(ctx, "/api/v1/players", &players); err != nil {
		return nil, err
	}
	return players, nil
}

// FetchRoomState fetches the state snapshot for a room.
func (c *Client) FetchRoomState(ctx context.Context, room string) ([]party.StateRow, error) {
	path := "/api/v1/state?room=" + url.QueryEscape(room)
	var states []party.StateRow
	if err := c.getJSON(ctx, path, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}
