package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAlert() *Alert {
	return &Alert{
		ID:          "ALERT-1-abc",
		Source:      SourceSystemMonitor,
		Level:       AlertLevelMedium,
		Title:       "CPU High",
		Description: "cpu above 90%",
		Timestamp:   time.Now(),
		Status:      AlertStatusNew,
		Metadata:    map[string]interface{}{},
	}
}

func TestLifecycleTransitions(t *testing.T) {
	a := newTestAlert()

	require.True(t, a.IsActive())
	require.True(t, a.Acknowledge("operator"))
	assert.Equal(t, AlertStatusAcknowledged, a.Status)
	assert.Equal(t, "operator", a.AcknowledgedBy)
	require.NotNil(t, a.AcknowledgedAt)
	assert.True(t, a.IsActive())

	require.True(t, a.Resolve("operator"))
	assert.Equal(t, AlertStatusResolved, a.Status)
	assert.False(t, a.IsActive())

	// Terminal states admit no further transitions.
	assert.False(t, a.Acknowledge("other"))
	assert.False(t, a.Resolve("other"))
	assert.False(t, a.Suppress("noise"))
	assert.False(t, a.Expire())
	assert.Equal(t, AlertStatusResolved, a.Status)
}

func TestSuppressRecordsReason(t *testing.T) {
	a := newTestAlert()
	require.True(t, a.Suppress("too noisy"))
	assert.Equal(t, AlertStatusSuppressed, a.Status)
	assert.Equal(t, "too noisy", a.Metadata["suppression_reason"])
}

func TestExpireSkipsTerminal(t *testing.T) {
	a := newTestAlert()
	require.True(t, a.Acknowledge("op"))
	require.True(t, a.Expire())
	assert.Equal(t, AlertStatusExpired, a.Status)

	b := newTestAlert()
	require.True(t, b.Resolve("op"))
	assert.False(t, b.Expire())
	assert.Equal(t, AlertStatusResolved, b.Status)
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash(SourceSystemMonitor, AlertLevelHigh, "CPU High", "cpu above 90%")
	h2 := ComputeHash(SourceSystemMonitor, AlertLevelHigh, "CPU High", "cpu above 90%")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)

	h3 := ComputeHash(SourceSystemMonitor, AlertLevelCritical, "CPU High", "cpu above 90%")
	assert.NotEqual(t, h1, h3)

	h4 := ComputeHash(SourceNetworkMonitor, AlertLevelHigh, "CPU High", "cpu above 90%")
	assert.NotEqual(t, h1, h4)
}

func TestRequiresAttention(t *testing.T) {
	a := newTestAlert()
	assert.False(t, a.RequiresAttention())

	a.Level = AlertLevelCritical
	assert.True(t, a.RequiresAttention())

	b := newTestAlert()
	b.Timestamp = time.Now().Add(-10 * time.Minute)
	assert.True(t, b.RequiresAttention())

	c := newTestAlert()
	c.NotificationsSent = 3
	assert.True(t, c.RequiresAttention())

	// Acknowledged stops the age and notification heuristics.
	b.Acknowledge("op")
	assert.False(t, b.RequiresAttention())

	// Terminal alerts never need attention.
	d := newTestAlert()
	d.Level = AlertLevelCritical
	d.Resolve("op")
	assert.False(t, d.RequiresAttention())
}

func TestEscalateNeverDecreases(t *testing.T) {
	a := newTestAlert()
	a.Escalate()
	a.Escalate()
	assert.Equal(t, 2, a.EscalationLevel)
}

func TestAddTagDeduplicates(t *testing.T) {
	a := newTestAlert()
	a.AddTag("hardware")
	a.AddTag("hardware")
	a.AddTag("performance")
	assert.Equal(t, []string{"hardware", "performance"}, a.Tags)
	assert.True(t, a.HasTag("hardware"))
	assert.False(t, a.HasTag("network"))
}

func TestCloneIsIndependent(t *testing.T) {
	a := newTestAlert()
	a.Tags = []string{"x"}
	a.Metadata["k"] = "v"
	a.RelatedAlerts = []string{"ALERT-2-def"}

	c := a.Clone()
	c.Tags[0] = "y"
	c.Metadata["k"] = "w"
	c.RelatedAlerts[0] = "other"

	assert.Equal(t, "x", a.Tags[0])
	assert.Equal(t, "v", a.Metadata["k"])
	assert.Equal(t, "ALERT-2-def", a.RelatedAlerts[0])
}

func TestSerialized(t *testing.T) {
	a := newTestAlert()
	a.Category = "system"
	a.Tags = []string{"hardware"}
	a.Metadata["k"] = "v"

	s := a.Serialized()
	assert.Equal(t, a.ID, s.AlertID)
	assert.Equal(t, "system_monitor", s.Source)
	assert.Equal(t, "medium", s.Level)
	assert.Equal(t, "new", s.Status)
	assert.Equal(t, "system", s.Category)
	assert.True(t, s.IsActive)
	assert.Equal(t, "v", s.Metadata["k"])

	_, err := time.Parse(time.RFC3339, s.Timestamp)
	assert.NoError(t, err)
}

func TestSnapshotExposesMetadataBothWays(t *testing.T) {
	a := newTestAlert()
	a.Metadata["duplicate_count"] = 5

	snap := a.Snapshot()
	assert.Equal(t, 5, snap["duplicate_count"])
	assert.Equal(t, 5, snap["metadata.duplicate_count"])
	assert.Equal(t, "medium", snap["level"])
	assert.Equal(t, "system_monitor", snap["source"])
}

func TestLevelRankAndValidity(t *testing.T) {
	assert.Less(t, AlertLevelInfo.Rank(), AlertLevelLow.Rank())
	assert.Less(t, AlertLevelHigh.Rank(), AlertLevelCritical.Rank())
	assert.True(t, AlertLevelCritical.Valid())
	assert.False(t, AlertLevel("bogus").Valid())
	assert.False(t, AlertSource("bogus").Valid())
	assert.True(t, SourceTradingEngine.Valid())
}
