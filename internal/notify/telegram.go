package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Telegram sends messages through the Bot API.
type Telegram struct {
	token  string
	chatID string
	http   *http.Client
}

var _ Sender = (*Telegram)(nil)

// NewTelegram creates a Telegram sender.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts title and message as one plain-text Telegram message.
func (t *Telegram) Send(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    title + "\n" + message,
	})
	if err != nil {
		return fmt.Errorf("telegram: encode: %w", err)
	}

	url := "https://api.telegram.org/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
