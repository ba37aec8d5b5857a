package notify

import (
	"context"
	"sync"

	"github.com/alerteye/internal/models"
	"go.uber.org/zap"
)

// Handler delivers notifications for the channels it declares via
// CanSend. The dispatcher asks registered handlers in order and routes
// each notification to the first one that accepts it.
type Handler interface {
	CanSend(n *models.Notification) bool
	Send(ctx context.Context, n *models.Notification) error
	Name() string
}

// LogHandler writes notifications to the process log. It is the
// delivery channel of last resort and never fails.
type LogHandler struct {
	logger *zap.Logger
}

func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Name() string { return "log" }

func (h *LogHandler) CanSend(n *models.Notification) bool {
	return n.Channel == models.ChannelLog
}

func (h *LogHandler) Send(ctx context.Context, n *models.Notification) error {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("priority", n.Priority.String()),
	}
	if n.Priority >= models.PriorityHigh {
		h.logger.Warn("notification", fields...)
	} else {
		h.logger.Info("notification", fields...)
	}
	return nil
}

const inAppHistory = 100

// InAppHandler delivers to an in-process sink, typically a UI event
// bus, and keeps a bounded tail of sent notifications for inspection.
type InAppHandler struct {
	mu     sync.Mutex
	sink   func(n *models.Notification)
	recent []*models.Notification
}

func NewInAppHandler(sink func(n *models.Notification)) *InAppHandler {
	return &InAppHandler{sink: sink}
}

func (h *InAppHandler) Name() string { return "in_app" }

func (h *InAppHandler) CanSend(n *models.Notification) bool {
	return n.Channel == models.ChannelInApp || n.Channel == models.ChannelDesktop
}

func (h *InAppHandler) Send(ctx context.Context, n *models.Notification) error {
	h.mu.Lock()
	h.recent = append(h.recent, n)
	if len(h.recent) > inAppHistory {
		h.recent = h.recent[len(h.recent)-inAppHistory:]
	}
	sink := h.sink
	h.mu.Unlock()

	if sink != nil {
		sink(n)
	}
	return nil
}

// Recent returns the tail of delivered notifications, oldest first.
func (h *InAppHandler) Recent() []*models.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*models.Notification(nil), h.recent...)
}
