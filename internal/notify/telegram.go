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

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramHandler delivers via the Telegram bot API. The chat id can be
// overridden per notification via the "chat_id" data field.
type TelegramHandler struct {
	cfg    TelegramConfig
	client *http.Client
}

func NewTelegramHandler(cfg TelegramConfig) *TelegramHandler {
	return &TelegramHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *TelegramHandler) Name() string { return "telegram" }

func (h *TelegramHandler) CanSend(n *models.Notification) bool {
	if n.Channel != models.ChannelTelegram || h.cfg.BotToken == "" {
		return false
	}
	return h.cfg.ChatID != "" || n.DataString("chat_id") != ""
}

func (h *TelegramHandler) Send(ctx context.Context, n *models.Notification) error {
	chatID := h.cfg.ChatID
	if c := n.DataString("chat_id"); c != "" {
		chatID = c
	}

	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    chatID,
		"text":       fmt.Sprintf("*%s*\n%s", n.Title, n.Message),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %v", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", h.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}
