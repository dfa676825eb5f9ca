// Package telegram is the thin boundary to the chat platform: parsing
// inbound webhook updates and sending outbound messages through the Bot
// API. Everything interesting happens elsewhere; this stays a dumb pipe.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SecretTokenHeader carries the webhook secret configured at setWebhook time.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Update is the subset of a Bot API update the assistant consumes.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User identifies the sender.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat identifies the conversation; Type distinguishes private chats from
// groups and channels.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// SenderID returns the opaque user identifier for an inbound message,
// falling back to the chat id when the sender is hidden.
func (m *Message) SenderID() string {
	if m.From != nil {
		return strconv.FormatInt(m.From.ID, 10)
	}
	return strconv.FormatInt(m.Chat.ID, 10)
}

// IsPrivate reports whether the message arrived in a one-on-one chat.
func (m *Message) IsPrivate() bool {
	return m.Chat.Type == "private"
}

// Client sends messages through the Bot API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Bot API client. baseURL defaults to the public API.
func NewClient(token, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{token: token, baseURL: baseURL, httpClient: httpClient}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage delivers text to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("build sendMessage body: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage rejected (status %d): %s", resp.StatusCode, payload)
	}
	return nil
}
