package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ArchivedAlert is the durable row written when the manager purges a
// terminal alert from the live table.
type ArchivedAlert struct {
	gorm.Model
	AlertID         string    `gorm:"uniqueIndex" json:"alert_id"`
	Source          string    `json:"source"`
	Level           string    `json:"level"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Category        string    `json:"category"`
	Tags            string    `json:"tags"`
	Metadata        string    `json:"metadata"`
	EscalationLevel int       `json:"escalation_level"`
	RaisedAt        time.Time `json:"raised_at"`
	ArchivedAt      time.Time `json:"archived_at"`
}

// NewArchivedAlert flattens an alert for storage. Tags and metadata are
// kept as JSON blobs; the archive is an audit trail, not a query index.
func NewArchivedAlert(a *Alert) *ArchivedAlert {
	tags, _ := json.Marshal(a.Tags)
	meta, _ := json.Marshal(a.Metadata)
	return &ArchivedAlert{
		AlertID:         a.ID,
		Source:          string(a.Source),
		Level:           string(a.Level),
		Title:           a.Title,
		Description:     a.Description,
		Status:          string(a.Status),
		Category:        a.Category,
		Tags:            string(tags),
		Metadata:        string(meta),
		EscalationLevel: a.EscalationLevel,
		RaisedAt:        a.Timestamp,
		ArchivedAt:      time.Now(),
	}
}
