package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookProvider forwards messages to the delivery collaborator over HTTP.
type WebhookProvider struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *WebhookProvider {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &WebhookProvider{
		url:    url,
		client: client,
	}
}

type webhookMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (p *WebhookProvider) Send(ctx context.Context, subscriberID string, text string) error {
	chatID, err := TargetID(subscriberID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(webhookMessage{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("delivery: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery: send to %s: status %d", subscriberID, resp.StatusCode)
	}
	return nil
}
