package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayMessenger talks to the chat gateway's HTTP API.
type GatewayMessenger struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

var _ Messenger = &GatewayMessenger{}

func NewGatewayMessenger(baseURL, token string) *GatewayMessenger {
	return &GatewayMessenger{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type typingRequest struct {
	Phone      string `json:"phone"`
	DurationMs int64  `json:"duration_ms"`
}

type messageRequest struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

type messageResponse struct {
	MessageID string `json:"message_id"`
}

func (g *GatewayMessenger) SendTyping(ctx context.Context, conversationKey string, duration time.Duration) error {
	payload := typingRequest{Phone: conversationKey, DurationMs: duration.Milliseconds()}
	return g.post(ctx, "/api/v1/typing", payload, nil)
}

func (g *GatewayMessenger) SendMessage(ctx context.Context, conversationKey, body string) (string, error) {
	payload := messageRequest{Phone: conversationKey, Body: body}
	var res messageResponse
	if err := g.post(ctx, "/api/v1/messages", payload, &res); err != nil {
		return "", err
	}
	return res.MessageID, nil
}

func (g *GatewayMessenger) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Token)

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
