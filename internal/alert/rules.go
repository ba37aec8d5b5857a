package alert

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alerteye/internal/models"
	"go.uber.org/zap"
)

// RuleSet holds the live rules, ordered by descending priority. Rules
// added at runtime only apply to subsequently ingested alerts.
type RuleSet struct {
	mu     sync.RWMutex
	rules  map[string]*models.AlertRule
	logger *zap.Logger
}

func NewRuleSet(logger *zap.Logger) *RuleSet {
	return &RuleSet{
		rules:  make(map[string]*models.AlertRule),
		logger: logger,
	}
}

func (rs *RuleSet) Add(rule *models.AlertRule) error {
	if rule.RuleID == "" {
		return fmt.Errorf("rule id is required")
	}
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	rs.mu.Lock()
	rs.rules[rule.RuleID] = rule
	rs.mu.Unlock()

	rs.logger.Info("rule added",
		zap.String("rule_id", rule.RuleID),
		zap.String("name", rule.Name))
	return nil
}

func (rs *RuleSet) Remove(ruleID string) bool {
	rs.mu.Lock()
	_, ok := rs.rules[ruleID]
	delete(rs.rules, ruleID)
	rs.mu.Unlock()

	if ok {
		rs.logger.Info("rule removed", zap.String("rule_id", ruleID))
	}
	return ok
}

func (rs *RuleSet) Get(ruleID string) (*models.AlertRule, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	rule, ok := rs.rules[ruleID]
	return rule, ok
}

// List returns the rules sorted by descending priority, rule id breaking
// ties so evaluation order is deterministic.
func (rs *RuleSet) List() []*models.AlertRule {
	rs.mu.RLock()
	rules := make([]*models.AlertRule, 0, len(rs.rules))
	for _, rule := range rs.rules {
		rules = append(rules, rule)
	}
	rs.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].RuleID < rules[j].RuleID
	})
	return rules
}

func (rs *RuleSet) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// DefaultRules is the stock rule set loaded into every new manager.
func DefaultRules() []*models.AlertRule {
	return []*models.AlertRule{
		{
			RuleID:      "RULE-001",
			Name:        "Critical alerts - immediate notification",
			Description: "Notify all channels and escalate critical alerts",
			Conditions: []models.RuleCondition{
				{Field: "level", Operator: models.OperatorEquals, Value: "critical"},
			},
			Actions: []models.RuleAction{
				{Type: models.ActionNotify, Channel: "all"},
				{Type: models.ActionEscalate},
			},
			Enabled:  true,
			Priority: 100,
		},
		{
			RuleID:      "RULE-002",
			Name:        "System alerts - categorization",
			Description: "Categorize alerts from the system monitor",
			Conditions: []models.RuleCondition{
				{Field: "source", Operator: models.OperatorEquals, Value: "system_monitor"},
			},
			Actions: []models.RuleAction{
				{Type: models.ActionSetCategory, Value: "system"},
				{Type: models.ActionAddTag, Value: []string{"hardware", "performance"}},
			},
			Enabled:  true,
			Priority: 50,
		},
		{
			RuleID:      "RULE-003",
			Name:        "Network alerts - categorization",
			Description: "Categorize alerts from the network monitor",
			Conditions: []models.RuleCondition{
				{Field: "source", Operator: models.OperatorEquals, Value: "network_monitor"},
			},
			Actions: []models.RuleAction{
				{Type: models.ActionSetCategory, Value: "network"},
				{Type: models.ActionAddTag, Value: []string{"connectivity", "security"}},
			},
			Enabled:  true,
			Priority: 50,
		},
		{
			RuleID:      "RULE-004",
			Name:        "Duplicate alerts - suppression",
			Description: "Suppress alerts with many recent duplicates",
			Conditions: []models.RuleCondition{
				{Field: "metadata.duplicate_count", Operator: models.OperatorGreaterThan, Value: "3"},
			},
			Actions: []models.RuleAction{
				{Type: models.ActionSuppress, Reason: "Múltiplas ocorrências em curto período"},
			},
			Enabled:  true,
			Priority: 30,
		},
	}
}
