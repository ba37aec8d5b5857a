package notify

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alerteye/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes the dispatcher. Zero values take the defaults.
type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	RetryDelay  time.Duration
}

func DefaultDispatcherConfig() Config {
	return Config{
		QueueSize:   10000,
		Workers:     3,
		SendTimeout: 10 * time.Second,
		RetryDelay:  500 * time.Millisecond,
	}
}

// item wraps a queued notification with its ordering key. effPriority
// starts at the notification's priority and drops by one per retry, so
// retried work yields to fresh work of the same band. seq preserves
// FIFO order inside a priority band.
type item struct {
	n           *models.Notification
	effPriority int
	seq         uint64
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].effPriority != h[j].effPriority {
		return h[i].effPriority > h[j].effPriority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*item)) }

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Sent          uint64            `json:"sent"`
	Failed        uint64            `json:"failed"`
	Queued        uint64            `json:"queued"`
	Dropped       uint64            `json:"dropped"`
	Expired       uint64            `json:"expired"`
	QueueSize     int               `json:"queue_size"`
	ByChannel     map[string]uint64 `json:"by_channel"`
	Handlers      []string          `json:"handlers"`
	ActiveWorkers int               `json:"active_workers"`
}

// Dispatcher is the delivery engine. Notifications are queued by
// priority and drained by a worker pool; each channel can carry its own
// rate limit. Handlers are consulted in registration order and the
// first that accepts a notification delivers it.
type Dispatcher struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    itemHeap
	seq      uint64
	running  bool
	handlers []Handler
	limiters map[models.NotificationChannel]*rate.Limiter

	callbacks map[string][]func(n *models.Notification)

	sent      uint64
	failed    uint64
	queued    uint64
	dropped   uint64
	expired   uint64
	byChannel map[string]uint64

	wg sync.WaitGroup
}

func NewDispatcher(cfg Config, logger *zap.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	d := &Dispatcher{
		cfg:       cfg,
		logger:    logger,
		limiters:  make(map[models.NotificationChannel]*rate.Limiter),
		callbacks: make(map[string][]func(n *models.Notification)),
		byChannel: make(map[string]uint64),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// RegisterHandler appends a delivery handler. Order matters: the first
// handler whose CanSend accepts a notification gets it.
func (d *Dispatcher) RegisterHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
	d.logger.Info("notification handler registered", zap.String("handler", h.Name()))
}

// SetRateLimit caps deliveries on a channel to one per interval.
func (d *Dispatcher) SetRateLimit(channel models.NotificationChannel, minInterval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if minInterval <= 0 {
		delete(d.limiters, channel)
		return
	}
	d.limiters[channel] = rate.NewLimiter(rate.Every(minInterval), 1)
}

// RegisterCallback subscribes to a dispatcher event. Valid events are
// on_queued, on_sent and on_failed.
func (d *Dispatcher) RegisterCallback(event string, fn func(n *models.Notification)) error {
	switch event {
	case "on_queued", "on_sent", "on_failed":
	default:
		return fmt.Errorf("unknown callback event: %s", event)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks[event] = append(d.callbacks[event], fn)
	return nil
}

// fire invokes the callbacks for an event with a copy of the
// notification. The copy keeps callbacks from racing with a worker that
// still owns the original, e.g. a retry bumping RetryCount after
// on_queued fired.
func (d *Dispatcher) fire(event string, n *models.Notification) {
	d.mu.Lock()
	fns := append(([]func(n *models.Notification))(nil), d.callbacks[event]...)
	d.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	n = n.Clone()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("notification callback panicked",
						zap.String("event", event),
						zap.Any("panic", r))
				}
			}()
			fn(n)
		}()
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.logger.Warn("dispatcher already running")
		return
	}
	d.running = true
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("notification dispatcher started", zap.Int("workers", d.cfg.Workers))
}

// Stop halts the workers, waits for in-flight sends, then drains the
// remaining queue with one synchronous delivery attempt each.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cond.Broadcast()
	d.mu.Unlock()

	d.wg.Wait()
	d.drain()
	d.logger.Info("notification dispatcher stopped")
}

// SendNotification queues one notification for delivery. It returns the
// notification id, or "" when the queue is full or the channel is
// unknown. maxRetries < 0 selects the default of 3.
func (d *Dispatcher) SendNotification(title, message string,
	channel models.NotificationChannel, priority models.NotificationPriority,
	data map[string]interface{}, maxRetries int, ttl time.Duration) string {

	if !channel.Valid() {
		d.logger.Warn("rejecting notification for unknown channel",
			zap.String("channel", string(channel)))
		return ""
	}
	if maxRetries < 0 {
		maxRetries = 3
	}

	n := &models.Notification{
		ID:         fmt.Sprintf("NOTIF-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Title:      title,
		Message:    message,
		Channel:    channel,
		Priority:   priority,
		Timestamp:  time.Now(),
		Data:       data,
		MaxRetries: maxRetries,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		n.ExpiresAt = &expires
	}

	d.mu.Lock()
	if len(d.queue) >= d.cfg.QueueSize {
		d.dropped++
		d.mu.Unlock()
		d.logger.Warn("notification queue full, dropping",
			zap.String("title", title),
			zap.String("channel", string(channel)))
		return ""
	}
	d.seq++
	heap.Push(&d.queue, &item{n: n, effPriority: int(priority), seq: d.seq})
	d.queued++
	d.cond.Signal()
	d.mu.Unlock()

	d.fire("on_queued", n)
	return n.ID
}

// SendWithFallback queues on the primary channel, then fans out
// low-priority copies to the fallback channels when the primary enqueue
// failed or the notification is urgent. It returns the primary id and
// the fallback ids.
func (d *Dispatcher) SendWithFallback(title, message string,
	primary models.NotificationChannel, priority models.NotificationPriority,
	fallbacks []models.NotificationChannel, data map[string]interface{}) (string, []string) {

	primaryID := d.SendNotification(title, message, primary, priority, data, -1, 0)

	var fallbackIDs []string
	if primaryID == "" || priority == models.PriorityUrgent {
		for _, channel := range fallbacks {
			if channel == primary {
				continue
			}
			id := d.SendNotification("[Fallback] "+title, message, channel,
				models.PriorityLow, data, -1, 0)
			if id != "" {
				fallbackIDs = append(fallbackIDs, id)
			}
		}
	}
	return primaryID, fallbackIDs
}

// pop blocks until an item is available or the dispatcher stops. It
// returns nil on shutdown.
func (d *Dispatcher) pop() *item {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.running && len(d.queue) == 0 {
		d.cond.Wait()
	}
	if !d.running {
		return nil
	}
	return heap.Pop(&d.queue).(*item)
}

// requeue puts an item back preserving its ordering key.
func (d *Dispatcher) requeue(it *item) {
	d.mu.Lock()
	heap.Push(&d.queue, it)
	d.cond.Signal()
	d.mu.Unlock()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		it := d.pop()
		if it == nil {
			return
		}
		d.process(it)
	}
}

func (d *Dispatcher) process(it *item) {
	n := it.n

	if n.Expired() {
		d.mu.Lock()
		d.expired++
		d.mu.Unlock()
		d.logger.Debug("notification expired before delivery",
			zap.String("notification_id", n.ID))
		return
	}

	handler := d.findHandler(n)
	if handler == nil {
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		d.logger.Warn("no handler for notification",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)))
		return
	}

	// A rate-limited channel should not starve the worker or lose the
	// notification's place in line: back off briefly, then requeue with
	// the original key.
	d.mu.Lock()
	limiter := d.limiters[n.Channel]
	d.mu.Unlock()
	if limiter != nil && !limiter.Allow() {
		time.Sleep(d.cfg.RetryDelay)
		d.requeue(it)
		return
	}

	err := d.attempt(handler, n)
	if err == nil {
		d.mu.Lock()
		d.sent++
		d.byChannel[string(n.Channel)]++
		d.mu.Unlock()
		d.fire("on_sent", n)
		return
	}

	d.logger.Warn("notification delivery failed",
		zap.String("notification_id", n.ID),
		zap.String("handler", handler.Name()),
		zap.Int("retry_count", n.RetryCount),
		zap.Error(err))

	if n.RetryCount < n.MaxRetries {
		n.RetryCount++
		it.effPriority--
		d.requeue(it)
		return
	}

	d.mu.Lock()
	d.failed++
	d.mu.Unlock()
	d.fire("on_failed", n)
}

// attempt runs one delivery with the send timeout, converting handler
// panics into errors so one bad handler cannot kill a worker.
func (d *Dispatcher) attempt(handler Handler, n *models.Notification) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", handler.Name(), r)
		}
	}()
	return handler.Send(ctx, n)
}

func (d *Dispatcher) findHandler(n *models.Notification) Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.handlers {
		if h.CanSend(n) {
			return h
		}
	}
	return nil
}

// drain makes one synchronous delivery attempt for whatever is still
// queued at shutdown. No retries, no rate limiting.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	remaining := make([]*item, len(d.queue))
	copy(remaining, d.queue)
	d.queue = d.queue[:0]
	d.mu.Unlock()

	if len(remaining) == 0 {
		return
	}
	d.logger.Info("draining notification queue", zap.Int("remaining", len(remaining)))

	for _, it := range remaining {
		n := it.n
		if n.Expired() {
			d.mu.Lock()
			d.expired++
			d.mu.Unlock()
			continue
		}
		handler := d.findHandler(n)
		if handler == nil {
			d.mu.Lock()
			d.dropped++
			d.mu.Unlock()
			continue
		}
		if err := d.attempt(handler, n); err != nil {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()
			d.fire("on_failed", n)
			continue
		}
		d.mu.Lock()
		d.sent++
		d.byChannel[string(n.Channel)]++
		d.mu.Unlock()
		d.fire("on_sent", n)
	}
}

// ClearQueue discards all queued notifications and resets the queued
// counter.
func (d *Dispatcher) ClearQueue() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cleared := len(d.queue)
	d.queue = d.queue[:0]
	d.queued = 0
	d.logger.Info("notification queue cleared", zap.Int("cleared", cleared))
	return cleared
}

func (d *Dispatcher) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	byChannel := make(map[string]uint64, len(d.byChannel))
	for k, v := range d.byChannel {
		byChannel[k] = v
	}
	handlers := make([]string, 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h.Name())
	}
	workers := 0
	if d.running {
		workers = d.cfg.Workers
	}
	return Stats{
		Sent:          d.sent,
		Failed:        d.failed,
		Queued:        d.queued,
		Dropped:       d.dropped,
		Expired:       d.expired,
		QueueSize:     len(d.queue),
		ByChannel:     byChannel,
		Handlers:      handlers,
		ActiveWorkers: workers,
	}
}
