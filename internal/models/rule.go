package models

import "time"

type RuleOperator string

const (
	OperatorEquals       RuleOperator = "equals"
	OperatorNotEquals    RuleOperator = "not_equals"
	OperatorContains     RuleOperator = "contains"
	OperatorGreaterThan  RuleOperator = "greater_than"
	OperatorLessThan     RuleOperator = "less_than"
	OperatorMatchesRegex RuleOperator = "matches_regex"
	OperatorInList       RuleOperator = "in_list"
)

type ActionType string

const (
	ActionSetCategory    ActionType = "set_category"
	ActionAddTag         ActionType = "add_tag"
	ActionSetMetadata    ActionType = "set_metadata"
	ActionEscalate       ActionType = "escalate"
	ActionSuppress       ActionType = "suppress"
	ActionNotify         ActionType = "notify"
	ActionExecuteHandler ActionType = "execute_handler"
)

// RuleCondition matches a single alert field against a value.
type RuleCondition struct {
	Field    string       `json:"field" binding:"required"`
	Operator RuleOperator `json:"operator" binding:"required"`
	Value    interface{}  `json:"value"`
}

// RuleAction is one effect applied when every condition of a rule holds.
// Which optional fields are meaningful depends on Type.
type RuleAction struct {
	Type    ActionType  `json:"type" binding:"required"`
	Value   interface{} `json:"value,omitempty"`
	Key     string      `json:"key,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Handler string      `json:"handler,omitempty"`
}

// AlertRule is a declarative processing rule. Rules are evaluated in
// descending Priority order and every matching rule's actions run; there
// is no short-circuit after the first match.
type AlertRule struct {
	RuleID      string          `json:"rule_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Conditions  []RuleCondition `json:"conditions"`
	Actions     []RuleAction    `json:"actions"`
	Enabled     bool            `json:"enabled"`
	Priority    int             `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
