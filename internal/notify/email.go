package notify

import (
	"context"
	"fmt"

	"github.com/alerteye/internal/models"
	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailHandler sends notifications over SMTP. The recipient list comes
// from the notification's "to_email" data field, falling back to the
// configured default list.
type EmailHandler struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewEmailHandler(cfg EmailConfig) *EmailHandler {
	return &EmailHandler{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (h *EmailHandler) Name() string { return "email" }

func (h *EmailHandler) CanSend(n *models.Notification) bool {
	if n.Channel != models.ChannelEmail {
		return false
	}
	return n.DataString("to_email") != "" || len(h.cfg.To) > 0
}

func (h *EmailHandler) Send(ctx context.Context, n *models.Notification) error {
	to := h.cfg.To
	if addr := n.DataString("to_email"); addr != "" {
		to = []string{addr}
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipient for notification %s", n.ID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", h.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] %s", n.Priority.String(), n.Title))
	msg.SetBody("text/plain", n.Message)

	done := make(chan error, 1)
	go func() {
		done <- h.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %v", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
