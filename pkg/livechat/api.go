package livechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API is the chat backend as seen by the client core.
type API interface {
	SendMessage(ctx context.Context, sessionID string, req SendRequest) (*SendResponse, error)
	RateMessage(ctx context.Context, sessionID string, req RateRequest) error
	FetchSession(ctx context.Context, sessionID string) (*SessionSnapshot, error)
}

// HTTPClient talks to the chat REST endpoints.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ API = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *HTTPClient) SendMessage(ctx context.Context, sessionID string, req SendRequest) (*SendResponse, error) {
	var out SendResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "message"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RateMessage(ctx context.Context, sessionID string, req RateRequest) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "rate"), req, nil)
}

func (c *HTTPClient) FetchSession(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	var out SessionSnapshot
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/chat/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return normalizeError(0, nil, fmt.Errorf("marshal request: %w", err))
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return normalizeError(0, nil, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return normalizeError(0, nil, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalizeError(resp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeError(resp.StatusCode, respBody, nil)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return normalizeError(0, nil, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
