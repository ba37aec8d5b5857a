package notify

import (
	"context"
	"fmt"

	"github.com/alerteye/internal/models"
	"github.com/slack-go/slack"
)

type SlackConfig struct {
	Token   string
	Channel string
}

// SlackHandler posts notifications to a Slack channel. The target
// channel can be overridden per notification via the "slack_channel"
// data field.
type SlackHandler struct {
	cfg    SlackConfig
	client *slack.Client
}

func NewSlackHandler(cfg SlackConfig) *SlackHandler {
	return &SlackHandler{
		cfg:    cfg,
		client: slack.New(cfg.Token),
	}
}

func (h *SlackHandler) Name() string { return "slack" }

func (h *SlackHandler) CanSend(n *models.Notification) bool {
	return n.Channel == models.ChannelSlack && h.cfg.Token != ""
}

func (h *SlackHandler) Send(ctx context.Context, n *models.Notification) error {
	channel := h.cfg.Channel
	if c := n.DataString("slack_channel"); c != "" {
		channel = c
	}

	attachment := slack.Attachment{
		Color: priorityColor(n.Priority),
		Title: n.Title,
		Text:  n.Message,
		Fields: []slack.AttachmentField{
			{Title: "Priority", Value: n.Priority.String(), Short: true},
			{Title: "Time", Value: n.Timestamp.Format("2006-01-02 15:04:05"), Short: true},
		},
	}

	_, _, err := h.client.PostMessageContext(ctx, channel,
		slack.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("failed to post slack message: %v", err)
	}
	return nil
}

func priorityColor(p models.NotificationPriority) string {
	switch p {
	case models.PriorityUrgent:
		return "danger"
	case models.PriorityHigh:
		return "warning"
	case models.PriorityNormal:
		return "#439FE0"
	default:
		return "good"
	}
}
