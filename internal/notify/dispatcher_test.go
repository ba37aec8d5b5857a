package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alerteye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubHandler records deliveries and can be told to fail.
type stubHandler struct {
	mu       sync.Mutex
	channel  models.NotificationChannel
	failAll  bool
	attempts int
	sent     []string
}

func (h *stubHandler) Name() string { return "stub-" + string(h.channel) }

func (h *stubHandler) CanSend(n *models.Notification) bool {
	return n.Channel == h.channel
}

func (h *stubHandler) Send(ctx context.Context, n *models.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts++
	if h.failAll {
		return fmt.Errorf("delivery refused")
	}
	h.sent = append(h.sent, n.Title)
	return nil
}

func (h *stubHandler) sentTitles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sent...)
}

func (h *stubHandler) attemptCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSendNotificationValidation(t *testing.T) {
	d := NewDispatcher(Config{}, zap.NewNop())

	assert.Empty(t, d.SendNotification("t", "m", "carrier_pigeon", models.PriorityNormal, nil, -1, 0))

	id := d.SendNotification("t", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)
	require.NotEmpty(t, id)
	assert.Contains(t, id, "NOTIF-")

	stats := d.GetStats()
	assert.Equal(t, uint64(1), stats.Queued)
	assert.Equal(t, 1, stats.QueueSize)
}

func TestQueueCapacity(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 2}, zap.NewNop())

	require.NotEmpty(t, d.SendNotification("a", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0))
	require.NotEmpty(t, d.SendNotification("b", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0))
	assert.Empty(t, d.SendNotification("c", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0))

	stats := d.GetStats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 2, stats.QueueSize)
}

func TestPriorityOrdering(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)

	// Queue before starting so the single worker sees the full heap.
	d.SendNotification("low", "m", models.ChannelLog, models.PriorityLow, nil, -1, 0)
	d.SendNotification("urgent-1", "m", models.ChannelLog, models.PriorityUrgent, nil, -1, 0)
	d.SendNotification("normal", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)
	d.SendNotification("urgent-2", "m", models.ChannelLog, models.PriorityUrgent, nil, -1, 0)

	d.Start()
	defer d.Stop()

	waitFor(t, func() bool { return len(h.sentTitles()) == 4 })
	assert.Equal(t, []string{"urgent-1", "urgent-2", "normal", "low"}, h.sentTitles())
}

func TestRetryExhaustion(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1, RetryDelay: 5 * time.Millisecond}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog, failAll: true}
	d.RegisterHandler(h)

	var failed []string
	var mu sync.Mutex
	require.NoError(t, d.RegisterCallback("on_failed", func(n *models.Notification) {
		mu.Lock()
		failed = append(failed, n.ID)
		mu.Unlock()
	}))

	d.Start()
	defer d.Stop()

	id := d.SendNotification("doomed", "m", models.ChannelLog, models.PriorityNormal, nil, 2, 0)
	require.NotEmpty(t, id)

	waitFor(t, func() bool { return d.GetStats().Failed == 1 })

	// maxRetries of 2 means three total attempts.
	assert.Equal(t, 3, h.attemptCount())
	mu.Lock()
	assert.Equal(t, []string{id}, failed)
	mu.Unlock()
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &flakyHandler{failures: 2}
	d.RegisterHandler(h)

	d.Start()
	defer d.Stop()

	d.SendNotification("eventually", "m", models.ChannelLog, models.PriorityNormal, nil, 3, 0)

	waitFor(t, func() bool { return d.GetStats().Sent == 1 })
	assert.Equal(t, uint64(0), d.GetStats().Failed)
}

// flakyHandler fails a fixed number of times before succeeding.
type flakyHandler struct {
	mu       sync.Mutex
	failures int
}

func (h *flakyHandler) Name() string { return "flaky" }

func (h *flakyHandler) CanSend(n *models.Notification) bool {
	return n.Channel == models.ChannelLog
}

func (h *flakyHandler) Send(ctx context.Context, n *models.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failures > 0 {
		h.failures--
		return fmt.Errorf("transient failure")
	}
	return nil
}

func TestNoHandlerDropsNotification(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	d.Start()
	defer d.Stop()

	d.SendNotification("nowhere", "m", models.ChannelSMS, models.PriorityNormal, nil, -1, 0)

	waitFor(t, func() bool { return d.GetStats().Dropped == 1 })
	assert.Equal(t, uint64(0), d.GetStats().Sent)
}

func TestExpiredNotificationSkipped(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)

	d.SendNotification("stale", "m", models.ChannelLog, models.PriorityNormal, nil, -1, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	d.Start()
	defer d.Stop()

	waitFor(t, func() bool { return d.GetStats().Expired == 1 })
	assert.Empty(t, h.sentTitles())
}

func TestPanickingHandlerIsContained(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	d.RegisterHandler(&panicHandler{})

	d.Start()
	defer d.Stop()

	d.SendNotification("boom", "m", models.ChannelLog, models.PriorityNormal, nil, 0, 0)

	waitFor(t, func() bool { return d.GetStats().Failed == 1 })
}

type panicHandler struct{}

func (h *panicHandler) Name() string { return "panic" }

func (h *panicHandler) CanSend(n *models.Notification) bool {
	return n.Channel == models.ChannelLog
}

func (h *panicHandler) Send(ctx context.Context, n *models.Notification) error {
	panic("handler bug")
}

func TestRateLimit(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1, RetryDelay: 5 * time.Millisecond}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)
	d.SetRateLimit(models.ChannelLog, 30*time.Millisecond)

	d.Start()
	defer d.Stop()

	d.SendNotification("first", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)
	d.SendNotification("second", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)

	// Both deliver despite the limit; the second is requeued, not lost.
	waitFor(t, func() bool { return d.GetStats().Sent == 2 })
	assert.Equal(t, []string{"first", "second"}, h.sentTitles())
}

func TestFallbackOnRejectedPrimary(t *testing.T) {
	d := NewDispatcher(Config{}, zap.NewNop())

	primaryID, fallbackIDs := d.SendWithFallback("t", "m",
		"carrier_pigeon", models.PriorityNormal,
		[]models.NotificationChannel{models.ChannelLog, models.ChannelInApp}, nil)

	assert.Empty(t, primaryID)
	assert.Len(t, fallbackIDs, 2)
}

func TestFallbackFanOutForUrgent(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	logH := &stubHandler{channel: models.ChannelLog}
	appH := &stubHandler{channel: models.ChannelInApp}
	d.RegisterHandler(logH)
	d.RegisterHandler(appH)

	primaryID, fallbackIDs := d.SendWithFallback("outage", "m",
		models.ChannelLog, models.PriorityUrgent,
		[]models.NotificationChannel{models.ChannelInApp, models.ChannelLog}, nil)

	require.NotEmpty(t, primaryID)
	// The primary channel is skipped in the fallback set.
	require.Len(t, fallbackIDs, 1)

	d.Start()
	defer d.Stop()

	waitFor(t, func() bool { return d.GetStats().Sent == 2 })
	assert.Equal(t, []string{"outage"}, logH.sentTitles())
	assert.Equal(t, []string{"[Fallback] outage"}, appH.sentTitles())
}

func TestNoFallbackForNormalPriority(t *testing.T) {
	d := NewDispatcher(Config{}, zap.NewNop())

	primaryID, fallbackIDs := d.SendWithFallback("routine", "m",
		models.ChannelLog, models.PriorityNormal,
		[]models.NotificationChannel{models.ChannelInApp}, nil)

	assert.NotEmpty(t, primaryID)
	assert.Empty(t, fallbackIDs)
}

func TestStopDrainsQueue(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)

	d.Start()
	for i := 0; i < 20; i++ {
		d.SendNotification(fmt.Sprintf("n-%d", i), "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)
	}
	d.Stop()

	stats := d.GetStats()
	assert.Equal(t, uint64(20), stats.Sent)
	assert.Equal(t, 0, stats.QueueSize)
}

func TestCallbacks(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)

	var mu sync.Mutex
	queued, sent := 0, 0
	require.NoError(t, d.RegisterCallback("on_queued", func(n *models.Notification) {
		mu.Lock()
		queued++
		mu.Unlock()
	}))
	require.NoError(t, d.RegisterCallback("on_sent", func(n *models.Notification) {
		mu.Lock()
		sent++
		mu.Unlock()
	}))
	assert.Error(t, d.RegisterCallback("on_maybe", func(n *models.Notification) {}))

	d.Start()
	defer d.Stop()

	d.SendNotification("cb", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return queued == 1 && sent == 1
	})
}

func TestCallbacksReceiveCopies(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	h := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(h)

	require.NoError(t, d.RegisterCallback("on_queued", func(n *models.Notification) {
		n.Title = "tampered"
		n.RetryCount = 99
	}))

	d.Start()
	defer d.Stop()

	d.SendNotification("original", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)

	waitFor(t, func() bool { return d.GetStats().Sent == 1 })
	assert.Equal(t, []string{"original"}, h.sentTitles())
}

func TestClearQueue(t *testing.T) {
	d := NewDispatcher(Config{}, zap.NewNop())

	d.SendNotification("a", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)
	d.SendNotification("b", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)

	assert.Equal(t, 2, d.ClearQueue())

	stats := d.GetStats()
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, uint64(0), stats.Queued)
}

func TestHandlerRouting(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1}, zap.NewNop())
	first := &stubHandler{channel: models.ChannelLog}
	second := &stubHandler{channel: models.ChannelLog}
	d.RegisterHandler(first)
	d.RegisterHandler(second)

	d.Start()
	defer d.Stop()

	d.SendNotification("routed", "m", models.ChannelLog, models.PriorityNormal, nil, -1, 0)

	waitFor(t, func() bool { return d.GetStats().Sent == 1 })
	// First matching handler wins.
	assert.Equal(t, []string{"routed"}, first.sentTitles())
	assert.Empty(t, second.sentTitles())
}

func TestLogAndInAppHandlers(t *testing.T) {
	logH := NewLogHandler(zap.NewNop())
	assert.True(t, logH.CanSend(&models.Notification{Channel: models.ChannelLog}))
	assert.False(t, logH.CanSend(&models.Notification{Channel: models.ChannelEmail}))
	assert.NoError(t, logH.Send(context.Background(), &models.Notification{
		Channel: models.ChannelLog, Priority: models.PriorityUrgent,
	}))

	var delivered []*models.Notification
	appH := NewInAppHandler(func(n *models.Notification) {
		delivered = append(delivered, n)
	})
	assert.True(t, appH.CanSend(&models.Notification{Channel: models.ChannelInApp}))
	assert.True(t, appH.CanSend(&models.Notification{Channel: models.ChannelDesktop}))

	n := &models.Notification{ID: "NOTIF-1", Channel: models.ChannelInApp}
	require.NoError(t, appH.Send(context.Background(), n))
	require.Len(t, delivered, 1)
	assert.Equal(t, "NOTIF-1", delivered[0].ID)
	assert.Len(t, appH.Recent(), 1)
}
