package alert

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alerteye/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const escalationAge = 5 * time.Minute

// Config tunes the manager's windowed algorithms.
type Config struct {
	DuplicateWindow   time.Duration
	CorrelationWindow time.Duration
	ProcessInterval   time.Duration
	RetentionPeriod   time.Duration
	HistorySize       int
}

func DefaultConfig() Config {
	return Config{
		DuplicateWindow:   5 * time.Minute,
		CorrelationWindow: time.Minute,
		ProcessInterval:   5 * time.Second,
		RetentionPeriod:   7 * 24 * time.Hour,
		HistorySize:       1000,
	}
}

// SourceHandler observes every new alert from one source. Handlers run
// outside the manager lock on a private copy of the alert and are
// isolated from each other.
type SourceHandler func(alert *models.Alert)

// NotificationFunc is invoked by the notify rule action. It receives a
// copy of the alert and must only enqueue work, never deliver
// synchronously.
type NotificationFunc func(alert *models.Alert, channel string)

// EscalationFunc observes every escalation. It runs outside the manager
// lock on a copy, so calling back into the manager is safe.
type EscalationFunc func(alert *models.Alert)

// EscalationStage runs its actions when an alert's escalation level
// reaches Level.
type EscalationStage struct {
	Level   int                 `json:"level"`
	Actions []models.RuleAction `json:"actions"`
}

// AlertFilter narrows GetAlerts. Nil fields match everything.
type AlertFilter struct {
	Status            *models.AlertStatus
	Level             *models.AlertLevel
	Source            *models.AlertSource
	Category          *string
	Tag               *string
	Active            *bool
	RequiresAttention *bool
	MinAgeSeconds     *float64
	MaxAgeSeconds     *float64
}

type Statistics struct {
	AlertsReceived     uint64         `json:"alerts_received"`
	AlertsProcessed    int            `json:"alerts_processed"`
	AlertsCorrelated   uint64         `json:"alerts_correlated"`
	AlertsEscalated    uint64         `json:"alerts_escalated"`
	DuplicatesFiltered uint64         `json:"duplicates_filtered"`
	LastProcessed      *time.Time     `json:"last_processed,omitempty"`
	TotalAlerts        int            `json:"total_alerts"`
	ActiveAlerts       int            `json:"active_alerts"`
	AttentionRequired  int            `json:"attention_required"`
	RuleCount          int            `json:"rules_count"`
	LevelCounts        map[string]int `json:"levels_count"`
	SourceCounts       map[string]int `json:"sources_count"`
	CategoryCounts     map[string]int `json:"categories_count"`
	Processing         bool           `json:"is_processing"`
	DuplicateWindowSec float64        `json:"duplicate_window"`
	CorrelationWinSec  float64        `json:"correlation_window"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type Summary struct {
	Timestamp         time.Time       `json:"timestamp"`
	TotalActive       int             `json:"total_active"`
	RequiresAttention int             `json:"requires_attention"`
	Critical          int             `json:"critical"`
	High              int             `json:"high"`
	Medium            int             `json:"medium"`
	RecentHour        int             `json:"recent_hour"`
	TopCategories     []CategoryCount `json:"top_categories"`
	OldestActive      *time.Time      `json:"oldest_active,omitempty"`
}

// Manager owns the canonical alert table. It deduplicates incoming
// alerts, applies the rule engine, and runs the periodic
// correlate -> escalate -> expire -> GC maintenance cycle. All shared
// state is guarded by one writer lock; concurrent ReceiveAlert calls
// for the same hash can never both create an alert.
type Manager struct {
	cfg    Config
	engine *RuleEngine
	rules  *RuleSet
	logger *zap.Logger
	db     *gorm.DB

	mu          sync.RWMutex
	alerts      map[string]*models.Alert
	hashes      map[string]struct{}
	history     []models.SerializedAlert
	historyNext int
	historyFull bool

	escalationPolicies map[string][]EscalationStage
	sourceHandlers     map[models.AlertSource][]SourceHandler
	customHandlers     map[string]SourceHandler
	notificationFns    []NotificationFunc
	escalationFns      []EscalationFunc

	// Callback work queued while the lock is held. Drained and invoked
	// after release so callbacks never observe live alerts or deadlock
	// by calling back into the manager.
	pending []func()

	received   uint64
	processed  int
	correlated uint64
	escalated  uint64
	duplicates uint64
	lastCycle  *time.Time

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	def := DefaultConfig()
	if cfg.DuplicateWindow == 0 {
		cfg.DuplicateWindow = def.DuplicateWindow
	}
	if cfg.CorrelationWindow <= 0 {
		cfg.CorrelationWindow = def.CorrelationWindow
	}
	if cfg.ProcessInterval <= 0 {
		cfg.ProcessInterval = def.ProcessInterval
	}
	if cfg.RetentionPeriod <= 0 {
		cfg.RetentionPeriod = def.RetentionPeriod
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}

	m := &Manager{
		cfg:                cfg,
		engine:             NewRuleEngine(logger),
		rules:              NewRuleSet(logger),
		logger:             logger,
		alerts:             make(map[string]*models.Alert),
		hashes:             make(map[string]struct{}),
		history:            make([]models.SerializedAlert, cfg.HistorySize),
		escalationPolicies: make(map[string][]EscalationStage),
		sourceHandlers:     make(map[models.AlertSource][]SourceHandler),
		customHandlers:     make(map[string]SourceHandler),
	}
	for _, rule := range DefaultRules() {
		if err := m.rules.Add(rule); err != nil {
			logger.Warn("failed to load default rule", zap.Error(err))
		}
	}
	return m
}

// SetArchiveDB enables archiving of purged terminal alerts.
func (m *Manager) SetArchiveDB(db *gorm.DB) {
	m.db = db
}

// Start launches the maintenance loop.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.logger.Warn("alert manager already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.run()
	m.logger.Info("alert manager started",
		zap.Duration("process_interval", m.cfg.ProcessInterval))
}

// Stop signals the maintenance loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		m.logger.Warn("timed out waiting for maintenance loop")
	}
	m.logger.Info("alert manager stopped")
}

func (m *Manager) run() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.cfg.ProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunMaintenance()
		case <-m.stopCh:
			return
		}
	}
}

// ReceiveAlert ingests one raw alert event. It returns the new alert id,
// or "" when the event was filtered as a duplicate or rejected as
// malformed. The call never blocks on I/O.
func (m *Manager) ReceiveAlert(source models.AlertSource, level models.AlertLevel,
	title, description string, metadata map[string]interface{},
	category string, tags []string) string {

	if !source.Valid() {
		m.logger.Warn("rejecting alert with unknown source", zap.String("source", string(source)))
		return ""
	}
	if !level.Valid() {
		m.logger.Warn("rejecting alert with unknown level", zap.String("level", string(level)))
		return ""
	}

	hash := models.ComputeHash(source, level, title, description)

	m.mu.Lock()
	m.received++

	if existing := m.findDuplicateLocked(hash); existing != nil {
		count := 1
		if v, ok := toFloat(existing.Metadata["duplicate_count"]); ok {
			count = int(v)
		}
		existing.Metadata["duplicate_count"] = count + 1
		existing.Metadata["last_duplicate"] = time.Now().Format(time.RFC3339)
		m.duplicates++
		m.mu.Unlock()
		m.logger.Debug("duplicate alert filtered", zap.String("hash", hash))
		return ""
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	alert := &models.Alert{
		ID:          fmt.Sprintf("ALERT-%d-%s", time.Now().Unix(), uuid.NewString()[:8]),
		Source:      source,
		Level:       level,
		Title:       title,
		Description: description,
		Timestamp:   time.Now(),
		Status:      models.AlertStatusNew,
		Category:    category,
		Tags:        append([]string(nil), tags...),
		Metadata:    metadata,
		Hash:        hash,
	}

	// Priority order, no short-circuit: every matching rule applies.
	for _, rule := range m.rules.List() {
		if m.engine.Evaluate(rule, alert.Snapshot()) {
			m.logger.Debug("rule matched",
				zap.String("rule_id", rule.RuleID),
				zap.String("alert_id", alert.ID))
			m.engine.ApplyActions(rule, alert, m)
		}
	}

	m.alerts[alert.ID] = alert
	m.hashes[hash] = struct{}{}
	m.appendHistoryLocked(alert.Serialized())

	handlers := append([]SourceHandler(nil), m.sourceHandlers[source]...)
	pending := m.takePendingLocked()
	snapshot := alert.Clone()
	m.mu.Unlock()

	m.runDeferred(pending)
	for _, handler := range handlers {
		m.invokeSourceHandler(handler, snapshot)
	}

	m.logger.Info("alert received",
		zap.String("alert_id", alert.ID),
		zap.String("title", title),
		zap.String("level", string(level)))
	return alert.ID
}

// findDuplicateLocked matches an incoming hash against active alerts
// inside the duplicate window. A non-positive window disables dedup.
func (m *Manager) findDuplicateLocked(hash string) *models.Alert {
	if m.cfg.DuplicateWindow <= 0 {
		return nil
	}
	if _, ok := m.hashes[hash]; !ok {
		return nil
	}
	cutoff := time.Now().Add(-m.cfg.DuplicateWindow)
	for _, a := range m.alerts {
		if a.Hash == hash && a.IsActive() && !a.Timestamp.Before(cutoff) {
			return a
		}
	}
	return nil
}

func (m *Manager) appendHistoryLocked(entry models.SerializedAlert) {
	m.history[m.historyNext] = entry
	m.historyNext++
	if m.historyNext == len(m.history) {
		m.historyNext = 0
		m.historyFull = true
	}
}

func (m *Manager) invokeSourceHandler(handler SourceHandler, alert *models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("source handler panicked",
				zap.String("alert_id", alert.ID),
				zap.Any("panic", r))
		}
	}()
	handler(alert)
}

// takePendingLocked hands ownership of the queued callback work to the
// caller, which must invoke it after releasing the lock.
func (m *Manager) takePendingLocked() []func() {
	pending := m.pending
	m.pending = nil
	return pending
}

func (m *Manager) runDeferred(fns []func()) {
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("callback panicked", zap.Any("panic", r))
				}
			}()
			fn()
		}()
	}
}

// Notify implements ActionSink. It bumps the alert's notification
// counter and queues the registered callbacks with a copy of the alert;
// the copy keeps callbacks off the live object once they run outside
// the lock.
func (m *Manager) Notify(alert *models.Alert, channel string) {
	alert.NotificationsSent++
	if len(m.notificationFns) == 0 {
		return
	}
	snapshot := alert.Clone()
	for _, fn := range m.notificationFns {
		fn := fn
		m.pending = append(m.pending, func() { fn(snapshot, channel) })
	}
}

// ExecuteHandler implements ActionSink.
func (m *Manager) ExecuteHandler(name string, alert *models.Alert) {
	handler, ok := m.customHandlers[name]
	if !ok {
		m.logger.Debug("no custom handler registered", zap.String("handler", name))
		return
	}
	snapshot := alert.Clone()
	m.pending = append(m.pending, func() { handler(snapshot) })
}

// RunMaintenance executes one maintenance cycle:
// correlate, check escalation, check expiry, GC the hash index, purge
// terminal alerts past retention. Exported so tests and operators can
// force a cycle without waiting for the ticker.
func (m *Manager) RunMaintenance() {
	m.mu.Lock()
	m.correlateLocked()
	m.checkEscalationLocked()
	m.checkExpiryLocked()
	m.gcHashesLocked()
	purged := m.purgeLocked()
	now := time.Now()
	m.lastCycle = &now
	pending := m.takePendingLocked()
	m.mu.Unlock()

	m.runDeferred(pending)
	m.archive(purged)
}

// correlateLocked groups recent active alerts by hash and links every
// secondary to the earliest (primary) member. correlation_count only
// moves when a new relation is recorded, so repeated cycles stay
// idempotent.
func (m *Manager) correlateLocked() {
	cutoff := time.Now().Add(-m.cfg.CorrelationWindow)

	groups := make(map[string][]*models.Alert)
	recent := 0
	for _, a := range m.alerts {
		if a.IsActive() && !a.Timestamp.Before(cutoff) {
			groups[a.Hash] = append(groups[a.Hash], a)
			recent++
		}
	}
	m.processed = recent

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		primary := group[0]
		for _, a := range group[1:] {
			if a.Timestamp.Before(primary.Timestamp) {
				primary = a
			}
		}

		linked := false
		for _, a := range group {
			if a.ID == primary.ID {
				continue
			}
			if containsID(primary.RelatedAlerts, a.ID) {
				continue
			}
			primary.RelatedAlerts = append(primary.RelatedAlerts, a.ID)
			count := 0
			if v, ok := toFloat(primary.Metadata["correlation_count"]); ok {
				count = int(v)
			}
			primary.Metadata["correlation_count"] = count + 1
			m.correlated++
			linked = true
		}

		if linked {
			if v, ok := toFloat(primary.Metadata["correlation_count"]); ok && int(v) >= 3 {
				m.escalateLocked(primary)
			}
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func (m *Manager) checkEscalationLocked() {
	for _, a := range m.alerts {
		if !a.IsActive() {
			continue
		}
		if a.Status == models.AlertStatusNew && a.AgeSeconds() > escalationAge.Seconds() {
			m.escalateLocked(a)
		}
		if a.Level == models.AlertLevelCritical && a.EscalationLevel < 2 {
			m.escalateLocked(a)
		}
		if stages, ok := m.escalationPolicies[a.Category]; ok {
			for _, stage := range stages {
				if a.EscalationLevel == stage.Level {
					m.engine.ApplyActionList(stage.Actions, a, m)
				}
			}
		}
	}
}

func (m *Manager) escalateLocked(a *models.Alert) {
	a.Escalate()
	m.escalated++
	m.logger.Info("alert escalated",
		zap.String("alert_id", a.ID),
		zap.Int("escalation_level", a.EscalationLevel))
	if len(m.escalationFns) == 0 {
		return
	}
	snapshot := a.Clone()
	for _, fn := range m.escalationFns {
		fn := fn
		m.pending = append(m.pending, func() { fn(snapshot) })
	}
}

func (m *Manager) checkExpiryLocked() {
	now := time.Now()
	for _, a := range m.alerts {
		if a.ExpiresAt != nil && now.After(*a.ExpiresAt) && a.Expire() {
			m.logger.Info("alert expired", zap.String("alert_id", a.ID))
		}
	}
}

// gcHashesLocked drops hash index entries with no alert newer than
// twice the duplicate window.
func (m *Manager) gcHashesLocked() {
	window := m.cfg.DuplicateWindow
	if window <= 0 {
		window = DefaultConfig().DuplicateWindow
	}
	cutoff := time.Now().Add(-2 * window)

	for hash := range m.hashes {
		recent := false
		for _, a := range m.alerts {
			if a.Hash == hash && !a.Timestamp.Before(cutoff) {
				recent = true
				break
			}
		}
		if !recent {
			delete(m.hashes, hash)
		}
	}
}

// purgeLocked removes terminal alerts older than the retention period
// from the live table and returns them for archiving. The history ring
// is unaffected.
func (m *Manager) purgeLocked() []*models.Alert {
	cutoff := time.Now().Add(-m.cfg.RetentionPeriod)
	var purged []*models.Alert
	for id, a := range m.alerts {
		if a.Status.Terminal() && a.Timestamp.Before(cutoff) {
			purged = append(purged, a)
			delete(m.alerts, id)
		}
	}
	if len(purged) > 0 {
		m.logger.Debug("purged terminal alerts", zap.Int("count", len(purged)))
	}
	return purged
}

func (m *Manager) archive(alerts []*models.Alert) {
	if m.db == nil || len(alerts) == 0 {
		return
	}
	for _, a := range alerts {
		if err := m.db.Create(models.NewArchivedAlert(a)).Error; err != nil {
			m.logger.Error("failed to archive alert",
				zap.String("alert_id", a.ID),
				zap.Error(err))
		}
	}
}

// Acknowledge marks an active alert as acknowledged by the actor.
func (m *Manager) Acknowledge(alertID, user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || !a.Acknowledge(user) {
		return false
	}
	m.logger.Info("alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("user", user))
	return true
}

// Resolve marks an active alert as resolved by the actor.
func (m *Manager) Resolve(alertID, user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || !a.Resolve(user) {
		return false
	}
	m.logger.Info("alert resolved",
		zap.String("alert_id", alertID),
		zap.String("user", user))
	return true
}

// Suppress suppresses an active alert with a reason.
func (m *Manager) Suppress(alertID, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || !a.Suppress(reason) {
		return false
	}
	m.logger.Info("alert suppressed",
		zap.String("alert_id", alertID),
		zap.String("reason", reason))
	return true
}

// GetAlert returns a copy of one alert.
func (m *Manager) GetAlert(alertID string) (*models.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// GetAlerts returns copies of all alerts matching the filter.
func (m *Manager) GetAlerts(filter AlertFilter) []*models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Alert
	for _, a := range m.alerts {
		if matchesFilter(a, filter) {
			result = append(result, a.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}

func matchesFilter(a *models.Alert, f AlertFilter) bool {
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Level != nil && a.Level != *f.Level {
		return false
	}
	if f.Source != nil && a.Source != *f.Source {
		return false
	}
	if f.Category != nil && a.Category != *f.Category {
		return false
	}
	if f.Tag != nil && !a.HasTag(*f.Tag) {
		return false
	}
	if f.Active != nil && a.IsActive() != *f.Active {
		return false
	}
	if f.RequiresAttention != nil && a.RequiresAttention() != *f.RequiresAttention {
		return false
	}
	if f.MinAgeSeconds != nil && a.AgeSeconds() < *f.MinAgeSeconds {
		return false
	}
	if f.MaxAgeSeconds != nil && a.AgeSeconds() > *f.MaxAgeSeconds {
		return false
	}
	return true
}

func (m *Manager) GetActiveAlerts() []*models.Alert {
	active := true
	return m.GetAlerts(AlertFilter{Active: &active})
}

func (m *Manager) GetAlertsRequiringAttention() []*models.Alert {
	attention := true
	return m.GetAlerts(AlertFilter{RequiresAttention: &attention})
}

// History returns the ring buffer of ingested alerts, oldest first.
func (m *Manager) History() []models.SerializedAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.historyFull {
		return append([]models.SerializedAlert(nil), m.history[:m.historyNext]...)
	}
	out := make([]models.SerializedAlert, 0, len(m.history))
	out = append(out, m.history[m.historyNext:]...)
	out = append(out, m.history[:m.historyNext]...)
	return out
}

// AddRule installs a rule at runtime. It applies only to alerts
// ingested afterwards.
func (m *Manager) AddRule(rule *models.AlertRule) error {
	return m.rules.Add(rule)
}

func (m *Manager) RemoveRule(ruleID string) bool {
	return m.rules.Remove(ruleID)
}

func (m *Manager) Rules() []*models.AlertRule {
	return m.rules.List()
}

// RegisterSourceHandler subscribes a handler to alerts from one source.
func (m *Manager) RegisterSourceHandler(source models.AlertSource, handler SourceHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceHandlers[source] = append(m.sourceHandlers[source], handler)
}

// RegisterCustomHandler names a handler for the execute_handler action.
func (m *Manager) RegisterCustomHandler(name string, handler SourceHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customHandlers[name] = handler
}

func (m *Manager) RegisterNotificationFunc(fn NotificationFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationFns = append(m.notificationFns, fn)
}

func (m *Manager) RegisterEscalationFunc(fn EscalationFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationFns = append(m.escalationFns, fn)
}

// RegisterEscalationPolicy sets the category-specific stages applied
// when an alert's escalation level matches a stage level.
func (m *Manager) RegisterEscalationPolicy(category string, stages []EscalationStage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationPolicies[category] = stages
}

func (m *Manager) GetStatistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Statistics{
		AlertsReceived:     m.received,
		AlertsProcessed:    m.processed,
		AlertsCorrelated:   m.correlated,
		AlertsEscalated:    m.escalated,
		DuplicatesFiltered: m.duplicates,
		LastProcessed:      m.lastCycle,
		TotalAlerts:        len(m.alerts),
		RuleCount:          m.rules.Count(),
		LevelCounts:        make(map[string]int),
		SourceCounts:       make(map[string]int),
		CategoryCounts:     make(map[string]int),
		Processing:         m.running,
		DuplicateWindowSec: m.cfg.DuplicateWindow.Seconds(),
		CorrelationWinSec:  m.cfg.CorrelationWindow.Seconds(),
	}
	for _, a := range m.alerts {
		stats.LevelCounts[string(a.Level)]++
		stats.SourceCounts[string(a.Source)]++
		if a.Category != "" {
			stats.CategoryCounts[a.Category]++
		}
		if a.IsActive() {
			stats.ActiveAlerts++
		}
		if a.RequiresAttention() {
			stats.AttentionRequired++
		}
	}
	return stats
}

func (m *Manager) GetSummary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := Summary{Timestamp: time.Now()}
	hourAgo := time.Now().Add(-time.Hour)
	categories := make(map[string]int)
	var oldest *time.Time

	for _, a := range m.alerts {
		if !a.Timestamp.Before(hourAgo) {
			summary.RecentHour++
		}
		if !a.IsActive() {
			continue
		}
		summary.TotalActive++
		if a.RequiresAttention() {
			summary.RequiresAttention++
		}
		switch a.Level {
		case models.AlertLevelCritical:
			summary.Critical++
		case models.AlertLevelHigh:
			summary.High++
		case models.AlertLevelMedium:
			summary.Medium++
		}
		if a.Category != "" {
			categories[a.Category]++
		}
		if oldest == nil || a.Timestamp.Before(*oldest) {
			t := a.Timestamp
			oldest = &t
		}
	}
	summary.OldestActive = oldest

	for cat, count := range categories {
		summary.TopCategories = append(summary.TopCategories, CategoryCount{Category: cat, Count: count})
	}
	sort.Slice(summary.TopCategories, func(i, j int) bool {
		if summary.TopCategories[i].Count != summary.TopCategories[j].Count {
			return summary.TopCategories[i].Count > summary.TopCategories[j].Count
		}
		return summary.TopCategories[i].Category < summary.TopCategories[j].Category
	})
	if len(summary.TopCategories) > 5 {
		summary.TopCategories = summary.TopCategories[:5]
	}
	return summary
}
