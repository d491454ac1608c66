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

// Discord sends messages through a channel webhook.
type Discord struct {
	webhookURL string
	http       *http.Client
}

var _ Sender = (*Discord)(nil)

// NewDiscord creates a Discord sender.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) Name() string { return "discord" }

// Send posts title and message as one webhook content block.
func (d *Discord) Send(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": "**" + title + "**\n" + message,
	})
	if err != nil {
		return fmt.Errorf("discord: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
