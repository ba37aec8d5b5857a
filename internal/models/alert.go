package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelLow      AlertLevel = "low"
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// Rank gives the total order used for escalation and triage.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelInfo:
		return 0
	case AlertLevelLow:
		return 1
	case AlertLevelMedium:
		return 2
	case AlertLevelHigh:
		return 3
	case AlertLevelCritical:
		return 4
	default:
		return -1
	}
}

func (l AlertLevel) Valid() bool {
	return l.Rank() >= 0
}

type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "new"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusSuppressed   AlertStatus = "suppressed"
	AlertStatusExpired      AlertStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s AlertStatus) Terminal() bool {
	switch s {
	case AlertStatusResolved, AlertStatusSuppressed, AlertStatusExpired:
		return true
	default:
		return false
	}
}

type AlertSource string

const (
	SourceSystemMonitor      AlertSource = "system_monitor"
	SourceNetworkMonitor     AlertSource = "network_monitor"
	SourcePerformanceMonitor AlertSource = "performance_monitor"
	SourceTradingEngine      AlertSource = "trading_engine"
	SourceRiskManager        AlertSource = "risk_manager"
	SourceNOAAService        AlertSource = "noaa_service"
	SourceSecurityScanner    AlertSource = "security_scanner"
	SourceUser               AlertSource = "user"
	SourceExternal           AlertSource = "external"
)

func (s AlertSource) Valid() bool {
	switch s {
	case SourceSystemMonitor, SourceNetworkMonitor, SourcePerformanceMonitor,
		SourceTradingEngine, SourceRiskManager, SourceNOAAService,
		SourceSecurityScanner, SourceUser, SourceExternal:
		return true
	default:
		return false
	}
}

// Alert is the canonical unit of work in the correlation core.
type Alert struct {
	ID                string                 `json:"alert_id"`
	Source            AlertSource            `json:"source"`
	Level             AlertLevel             `json:"level"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Timestamp         time.Time              `json:"timestamp"`
	Status            AlertStatus            `json:"status"`
	AcknowledgedBy    string                 `json:"acknowledged_by,omitempty"`
	AcknowledgedAt    *time.Time             `json:"acknowledged_at,omitempty"`
	ResolvedBy        string                 `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time             `json:"resolved_at,omitempty"`
	Category          string                 `json:"category"`
	Tags              []string               `json:"tags"`
	Metadata          map[string]interface{} `json:"metadata"`
	RelatedAlerts     []string               `json:"related_alerts"`
	ExpiresAt         *time.Time             `json:"expires_at,omitempty"`
	NotificationsSent int                    `json:"notifications_sent"`
	EscalationLevel   int                    `json:"escalation_level"`
	Hash              string                 `json:"hash"`
}

// ComputeHash derives the content hash used for deduplication and
// correlation grouping. It is never used as an identity or storage key.
func ComputeHash(source AlertSource, level AlertLevel, title, description string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s:%s", source, level, title, description)))
	return hex.EncodeToString(sum[:])
}

// IsActive reports whether the alert still counts as open work.
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusNew || a.Status == AlertStatusAcknowledged
}

func (a *Alert) AgeSeconds() float64 {
	return time.Since(a.Timestamp).Seconds()
}

// RequiresAttention flags alerts an operator should look at now:
// critical and active, unacknowledged for over five minutes, or
// repeatedly notified without acknowledgement.
func (a *Alert) RequiresAttention() bool {
	if a.Status.Terminal() {
		return false
	}
	if a.Level == AlertLevelCritical {
		return true
	}
	if a.Status == AlertStatusNew && a.AgeSeconds() > 300 {
		return true
	}
	if a.NotificationsSent >= 3 && a.Status == AlertStatusNew {
		return true
	}
	return false
}

// Acknowledge transitions New -> Acknowledged. Fails on inactive alerts.
func (a *Alert) Acknowledge(user string) bool {
	if !a.IsActive() {
		return false
	}
	now := time.Now()
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedBy = user
	a.AcknowledgedAt = &now
	return true
}

// Resolve transitions an active alert to the terminal Resolved state.
func (a *Alert) Resolve(user string) bool {
	if !a.IsActive() {
		return false
	}
	now := time.Now()
	a.Status = AlertStatusResolved
	a.ResolvedBy = user
	a.ResolvedAt = &now
	return true
}

// Suppress transitions an active alert to the terminal Suppressed state.
func (a *Alert) Suppress(reason string) bool {
	if !a.IsActive() {
		return false
	}
	a.Status = AlertStatusSuppressed
	if a.Metadata == nil {
		a.Metadata = make(map[string]interface{})
	}
	a.Metadata["suppression_reason"] = reason
	return true
}

// Expire marks a non-terminal alert as Expired.
func (a *Alert) Expire() bool {
	if a.Status.Terminal() {
		return false
	}
	a.Status = AlertStatusExpired
	return true
}

// Escalate bumps the escalation counter. The counter never decreases.
func (a *Alert) Escalate() {
	a.EscalationLevel++
}

// AddTag appends a tag unless already present.
func (a *Alert) AddTag(tag string) {
	for _, t := range a.Tags {
		if t == tag {
			return
		}
	}
	a.Tags = append(a.Tags, tag)
}

func (a *Alert) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never mutate stored state.
func (a *Alert) Clone() *Alert {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	c.RelatedAlerts = append([]string(nil), a.RelatedAlerts...)
	c.Metadata = make(map[string]interface{}, len(a.Metadata))
	for k, v := range a.Metadata {
		c.Metadata[k] = v
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// SerializedAlert is the stable representation used for logs, exports
// and UI payloads.
type SerializedAlert struct {
	AlertID           string                 `json:"alert_id"`
	Source            string                 `json:"source"`
	Level             string                 `json:"level"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Timestamp         string                 `json:"timestamp"`
	Status            string                 `json:"status"`
	Category          string                 `json:"category"`
	Tags              []string               `json:"tags"`
	IsActive          bool                   `json:"is_active"`
	RequiresAttention bool                   `json:"requires_attention"`
	AgeSeconds        float64                `json:"age_seconds"`
	Metadata          map[string]interface{} `json:"metadata"`
	EscalationLevel   int                    `json:"escalation_level"`
}

func (a *Alert) Serialized() SerializedAlert {
	tags := append([]string(nil), a.Tags...)
	if tags == nil {
		tags = []string{}
	}
	meta := make(map[string]interface{}, len(a.Metadata))
	for k, v := range a.Metadata {
		meta[k] = v
	}
	return SerializedAlert{
		AlertID:           a.ID,
		Source:            string(a.Source),
		Level:             string(a.Level),
		Title:             a.Title,
		Description:       a.Description,
		Timestamp:         a.Timestamp.Format(time.RFC3339),
		Status:            string(a.Status),
		Category:          a.Category,
		Tags:              tags,
		IsActive:          a.IsActive(),
		RequiresAttention: a.RequiresAttention(),
		AgeSeconds:        a.AgeSeconds(),
		Metadata:          meta,
		EscalationLevel:   a.EscalationLevel,
	}
}

// Snapshot flattens the alert for rule evaluation. Metadata keys are
// reachable both bare and under a "metadata." prefix.
func (a *Alert) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"alert_id":           a.ID,
		"source":             string(a.Source),
		"level":              string(a.Level),
		"title":              a.Title,
		"description":        a.Description,
		"status":             string(a.Status),
		"category":           a.Category,
		"tags":               append([]string(nil), a.Tags...),
		"is_active":          a.IsActive(),
		"requires_attention": a.RequiresAttention(),
		"age_seconds":        a.AgeSeconds(),
		"escalation_level":   a.EscalationLevel,
		"notifications_sent": a.NotificationsSent,
	}
	for k, v := range a.Metadata {
		snap[k] = v
		snap["metadata."+k] = v
	}
	return snap
}
