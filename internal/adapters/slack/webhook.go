package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

const maxErrorBodyBytes = 64 << 10

type webhookPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// Webhook posts messages to a Slack incoming webhook. Each Deliver is one
// POST with no retry; a timeout after Slack accepted the body can still
// lead to a duplicate message on the next cycle.
type Webhook struct {
	url    string
	client *http.Client
}

var _ ports.Deliverer = (*Webhook)(nil)

func NewWebhook(webhookURL string, client *http.Client) (*Webhook, error) {
	if webhookURL == "" {
		return nil, errors.New("webhook url is required")
	}
	parsed, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("webhook url must use http or https")
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Webhook{url: webhookURL, client: client}, nil
}

func (w *Webhook) Deliver(ctx context.Context, msg ports.Message) error {
	body, err := json.Marshal(webhookPayload{
		Text:      msg.Text,
		Username:  msg.Username,
		IconEmoji: msg.IconEmoji,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &domain.DeliveryError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
