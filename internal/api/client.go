// Package api is the thin HTTP client for the backend's chat endpoint.
// It is deliberately fire-and-forget: one POST, one reply, no retries;
// the live event channel carries everything else.
package api

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

	"github.com/finchley/flowdeck/internal/log"
)

const (
	chatPath       = "/api/chat"
	defaultTimeout = 10 * time.Second
)

// ChatRequest is the outbound chat message.
type ChatRequest struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ChatResponse is the backend's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Client talks to the backend's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (http or https).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SendChat posts a chat message and returns the reply. Each message gets a
// fresh uuid so the backend can correlate follow-up events with it.
func (c *Client) SendChat(ctx context.Context, message string) (ChatResponse, error) {
	reqBody := ChatRequest{
		ID:      uuid.NewString(),
		Message: message,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug(log.CatAPI, "sending chat message", "id", reqBody.ID, "bytes", len(payload))

	resp, err := c.http.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("posting chat message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ChatResponse{}, fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("decoding chat response: %w", err)
	}
	return out, nil
}
