package alert

import (
	"testing"
	"time"

	"github.com/alerteye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sinkRecorder struct {
	notified []string
	handlers []string
}

func (s *sinkRecorder) Notify(a *models.Alert, channel string) {
	s.notified = append(s.notified, channel)
}

func (s *sinkRecorder) ExecuteHandler(name string, a *models.Alert) {
	s.handlers = append(s.handlers, name)
}

func engineAlert() *models.Alert {
	return &models.Alert{
		ID:          "ALERT-1-abc",
		Source:      models.SourceSystemMonitor,
		Level:       models.AlertLevelHigh,
		Title:       "Disk usage warning",
		Description: "disk at 85 percent",
		Timestamp:   time.Now(),
		Status:      models.AlertStatusNew,
		Metadata:    map[string]interface{}{"disk_pct": 85.0},
	}
}

func rule(conds []models.RuleCondition) *models.AlertRule {
	return &models.AlertRule{
		RuleID:     "RULE-T",
		Name:       "test",
		Conditions: conds,
		Enabled:    true,
	}
}

func TestEvaluateOperators(t *testing.T) {
	e := NewRuleEngine(zap.NewNop())
	snap := engineAlert().Snapshot()

	cases := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{"equals match", models.RuleCondition{Field: "level", Operator: models.OperatorEquals, Value: "high"}, true},
		{"equals miss", models.RuleCondition{Field: "level", Operator: models.OperatorEquals, Value: "low"}, false},
		{"not equals", models.RuleCondition{Field: "source", Operator: models.OperatorNotEquals, Value: "network_monitor"}, true},
		{"contains", models.RuleCondition{Field: "title", Operator: models.OperatorContains, Value: "Disk"}, true},
		{"contains miss", models.RuleCondition{Field: "title", Operator: models.OperatorContains, Value: "Memory"}, false},
		{"greater than", models.RuleCondition{Field: "disk_pct", Operator: models.OperatorGreaterThan, Value: 80}, true},
		{"greater than string threshold", models.RuleCondition{Field: "disk_pct", Operator: models.OperatorGreaterThan, Value: "80"}, true},
		{"less than", models.RuleCondition{Field: "disk_pct", Operator: models.OperatorLessThan, Value: 80}, false},
		{"regex", models.RuleCondition{Field: "title", Operator: models.OperatorMatchesRegex, Value: "^Disk.*warning$"}, true},
		{"regex invalid fails closed", models.RuleCondition{Field: "title", Operator: models.OperatorMatchesRegex, Value: "("}, false},
		{"in list", models.RuleCondition{Field: "level", Operator: models.OperatorInList, Value: []string{"high", "critical"}}, true},
		{"in list miss", models.RuleCondition{Field: "level", Operator: models.OperatorInList, Value: []string{"low"}}, false},
		{"missing field", models.RuleCondition{Field: "nope", Operator: models.OperatorEquals, Value: "x"}, false},
		{"unknown operator fails closed", models.RuleCondition{Field: "level", Operator: "fuzzy", Value: "high"}, false},
		{"non numeric comparison fails closed", models.RuleCondition{Field: "title", Operator: models.OperatorGreaterThan, Value: 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Evaluate(rule([]models.RuleCondition{tc.cond}), snap)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateAllConditionsMustHold(t *testing.T) {
	e := NewRuleEngine(zap.NewNop())
	snap := engineAlert().Snapshot()

	r := rule([]models.RuleCondition{
		{Field: "level", Operator: models.OperatorEquals, Value: "high"},
		{Field: "source", Operator: models.OperatorEquals, Value: "network_monitor"},
	})
	assert.False(t, e.Evaluate(r, snap))
}

func TestEvaluateDisabledRule(t *testing.T) {
	e := NewRuleEngine(zap.NewNop())
	r := rule([]models.RuleCondition{
		{Field: "level", Operator: models.OperatorEquals, Value: "high"},
	})
	r.Enabled = false
	assert.False(t, e.Evaluate(r, engineAlert().Snapshot()))
}

func TestApplyActions(t *testing.T) {
	e := NewRuleEngine(zap.NewNop())
	a := engineAlert()
	sink := &sinkRecorder{}

	e.ApplyActionList([]models.RuleAction{
		{Type: models.ActionSetCategory, Value: "storage"},
		{Type: models.ActionAddTag, Value: []string{"disk", "capacity"}},
		{Type: models.ActionAddTag, Value: "disk"},
		{Type: models.ActionSetMetadata, Key: "handled_by", Value: "rules"},
		{Type: models.ActionEscalate},
		{Type: models.ActionNotify, Channel: "slack"},
		{Type: models.ActionNotify},
		{Type: models.ActionExecuteHandler, Handler: "pager"},
		{Type: "unknown_action"},
	}, a, sink)

	assert.Equal(t, "storage", a.Category)
	assert.Equal(t, []string{"disk", "capacity"}, a.Tags)
	assert.Equal(t, "rules", a.Metadata["handled_by"])
	assert.Equal(t, 1, a.EscalationLevel)
	assert.Equal(t, []string{"slack", "all"}, sink.notified)
	assert.Equal(t, []string{"pager"}, sink.handlers)
}

func TestSuppressActionDefaultReason(t *testing.T) {
	e := NewRuleEngine(zap.NewNop())
	a := engineAlert()

	e.ApplyActionList([]models.RuleAction{{Type: models.ActionSuppress}}, a, nil)
	assert.Equal(t, models.AlertStatusSuppressed, a.Status)
	assert.Equal(t, "Suppressed by rule", a.Metadata["suppression_reason"])
}

func TestRuleSetOrdering(t *testing.T) {
	rs := NewRuleSet(zap.NewNop())
	require.NoError(t, rs.Add(&models.AlertRule{RuleID: "R-B", Name: "b", Priority: 50}))
	require.NoError(t, rs.Add(&models.AlertRule{RuleID: "R-A", Name: "a", Priority: 50}))
	require.NoError(t, rs.Add(&models.AlertRule{RuleID: "R-C", Name: "c", Priority: 100}))

	list := rs.List()
	require.Len(t, list, 3)
	assert.Equal(t, "R-C", list[0].RuleID)
	assert.Equal(t, "R-A", list[1].RuleID)
	assert.Equal(t, "R-B", list[2].RuleID)
}

func TestRuleSetValidation(t *testing.T) {
	rs := NewRuleSet(zap.NewNop())
	assert.Error(t, rs.Add(&models.AlertRule{Name: "no id"}))
	assert.Error(t, rs.Add(&models.AlertRule{RuleID: "R-1"}))
	assert.False(t, rs.Remove("missing"))
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 4)

	e := NewRuleEngine(zap.NewNop())

	critical := engineAlert()
	critical.Level = models.AlertLevelCritical
	assert.True(t, e.Evaluate(rules[0], critical.Snapshot()))

	system := engineAlert()
	assert.True(t, e.Evaluate(rules[1], system.Snapshot()))
	assert.False(t, e.Evaluate(rules[2], system.Snapshot()))

	noisy := engineAlert()
	noisy.Metadata["duplicate_count"] = 5
	assert.True(t, e.Evaluate(rules[3], noisy.Snapshot()))

	quiet := engineAlert()
	quiet.Metadata["duplicate_count"] = 2
	assert.False(t, e.Evaluate(rules[3], quiet.Snapshot()))
}
