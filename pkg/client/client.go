// Package client talks to a chat relay the same way the website widget does: one
// session id per client, one POST per message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NoResponse is what the widget shows when the backend reply has no "reply" field.
const NoResponse = "No response."

type Client struct {
	baseURL    string
	businessID string
	sessionID  string
	httpClient *http.Client
}

type Option func(*Client)

func WithSessionID(id string) Option {
	return func(c *Client) {
		if strings.TrimSpace(id) != "" {
			c.sessionID = strings.TrimSpace(id)
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, businessID string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("relay url is empty")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return nil, errors.New("business id is empty")
	}
	c := &Client{
		baseURL:    baseURL,
		businessID: businessID,
		sessionID:  uuid.NewString(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SessionID() string  { return c.sessionID }
func (c *Client) BusinessID() string { return c.businessID }

// Response is the relay's 2xx JSON body.
type Response struct {
	Raw any
}

// Reply returns the "reply" string field, or NoResponse.
func (r *Response) Reply() string {
	if r == nil {
		return NoResponse
	}
	obj, ok := r.Raw.(map[string]any)
	if !ok {
		return NoResponse
	}
	s, ok := obj["reply"].(string)
	if !ok || s == "" {
		return NoResponse
	}
	return s
}

// StatusError is returned for non-2xx relay responses.
type StatusError struct {
	Status  int
	Message string
	Details string
}

func (e *StatusError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("relay returned %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

type chatPayload struct {
	BusinessID string `json:"businessId"`
	Message    string `json:"message"`
	SessionID  string `json:"sessionId"`
}

// Send posts one message in the client's session.
func (c *Client) Send(ctx context.Context, message string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("message is empty")
	}
	body, err := json.Marshal(chatPayload{BusinessID: c.businessID, Message: message, SessionID: c.sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "encode chat request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "relay request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read relay response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeStatusError(resp.StatusCode, raw)
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "decode relay response")
	}
	return &Response{Raw: out}, nil
}

func decodeStatusError(status int, raw []byte) *StatusError {
	se := &StatusError{Status: status}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		se.Message = body.Error
		se.Details = body.Details
		return se
	}
	se.Message = strings.TrimSpace(string(raw))
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	return se
}
