package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alerteye/internal/models"
)

type WebhookConfig struct {
	URL     string
	Headers map[string]string
}

// WebhookHandler POSTs notifications as JSON to an HTTP endpoint. The
// URL can be overridden per notification via the "webhook_url" data
// field; extra headers come from data["headers"].
type WebhookHandler struct {
	cfg    WebhookConfig
	client *http.Client
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *WebhookHandler) Name() string { return "webhook" }

func (h *WebhookHandler) CanSend(n *models.Notification) bool {
	if n.Channel != models.ChannelWebhook {
		return false
	}
	return h.cfg.URL != "" || n.DataString("webhook_url") != ""
}

func (h *WebhookHandler) Send(ctx context.Context, n *models.Notification) error {
	url := h.cfg.URL
	if u := n.DataString("webhook_url"); u != "" {
		url = u
	}

	payload := map[string]interface{}{
		"id":        n.ID,
		"title":     n.Title,
		"message":   n.Message,
		"priority":  n.Priority.String(),
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}
	if extra, ok := n.Data["payload"].(map[string]interface{}); ok {
		for k, v := range extra {
			payload[k] = v
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}
	if headers, ok := n.Data["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
