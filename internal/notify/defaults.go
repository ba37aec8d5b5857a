package notify

import (
	"time"

	"github.com/alerteye/internal/models"
	"go.uber.org/zap"
)

// HandlersConfig collects the per-channel settings used to build the
// stock handler set. Empty sections leave that channel unhandled.
type HandlersConfig struct {
	Email    EmailConfig
	Slack    SlackConfig
	Webhook  WebhookConfig
	Telegram TelegramConfig

	RateLimits map[models.NotificationChannel]time.Duration
}

// RegisterDefaultHandlers wires the standard handlers into the
// dispatcher. The log and in-app handlers are always registered; the
// external channels only when configured.
func RegisterDefaultHandlers(d *Dispatcher, cfg HandlersConfig, logger *zap.Logger) {
	d.RegisterHandler(NewLogHandler(logger))
	d.RegisterHandler(NewInAppHandler(nil))

	if cfg.Email.Host != "" {
		d.RegisterHandler(NewEmailHandler(cfg.Email))
	}
	if cfg.Slack.Token != "" {
		d.RegisterHandler(NewSlackHandler(cfg.Slack))
	}
	if cfg.Webhook.URL != "" {
		d.RegisterHandler(NewWebhookHandler(cfg.Webhook))
	}
	if cfg.Telegram.BotToken != "" {
		d.RegisterHandler(NewTelegramHandler(cfg.Telegram))
	}

	for channel, interval := range cfg.RateLimits {
		d.SetRateLimit(channel, interval)
	}
}
