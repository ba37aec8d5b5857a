package models

import "time"

type NotificationChannel string

const (
	ChannelInApp    NotificationChannel = "in_app"
	ChannelDesktop  NotificationChannel = "desktop"
	ChannelEmail    NotificationChannel = "email"
	ChannelWebhook  NotificationChannel = "webhook"
	ChannelTelegram NotificationChannel = "telegram"
	ChannelDiscord  NotificationChannel = "discord"
	ChannelSlack    NotificationChannel = "slack"
	ChannelSMS      NotificationChannel = "sms"
	ChannelVoice    NotificationChannel = "voice"
	ChannelLog      NotificationChannel = "log"
)

func AllChannels() []NotificationChannel {
	return []NotificationChannel{
		ChannelInApp, ChannelDesktop, ChannelEmail, ChannelWebhook,
		ChannelTelegram, ChannelDiscord, ChannelSlack, ChannelSMS,
		ChannelVoice, ChannelLog,
	}
}

func (c NotificationChannel) Valid() bool {
	for _, known := range AllChannels() {
		if c == known {
			return true
		}
	}
	return false
}

// NotificationPriority orders delivery. It is a separate scale from
// AlertLevel.
type NotificationPriority int

const (
	PriorityLow NotificationPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p NotificationPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority maps the wire name to a priority, defaulting to normal.
func ParsePriority(s string) NotificationPriority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}

// Notification is one delivery attempt unit. Apart from RetryCount it is
// never mutated after creation.
type Notification struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Channel    NotificationChannel    `json:"channel"`
	Priority   NotificationPriority   `json:"priority"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
}

// Clone returns a copy safe to hand to callbacks while workers still
// own the original.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.Data != nil {
		c.Data = make(map[string]interface{}, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	if n.ExpiresAt != nil {
		t := *n.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (n *Notification) Expired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}

// DataString fetches a string payload field, e.g. "to_email" or
// "webhook_url".
func (n *Notification) DataString(key string) string {
	if n.Data == nil {
		return ""
	}
	if v, ok := n.Data[key].(string); ok {
		return v
	}
	return ""
}
