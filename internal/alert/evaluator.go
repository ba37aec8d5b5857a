package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alerteye/internal/models"
	"go.uber.org/zap"
)

// ActionSink receives the two rule actions that reach outside a single
// alert. Notify only enqueues work; it never delivers synchronously.
type ActionSink interface {
	Notify(alert *models.Alert, channel string)
	ExecuteHandler(name string, alert *models.Alert)
}

// RuleEngine evaluates declarative rules against alert snapshots and
// applies their actions. It is stateless and owns no concurrency.
type RuleEngine struct {
	logger *zap.Logger
}

func NewRuleEngine(logger *zap.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// Evaluate reports whether every condition of the rule holds for the
// given alert snapshot. Unknown operators evaluate to false.
func (e *RuleEngine) Evaluate(rule *models.AlertRule, snapshot map[string]interface{}) bool {
	if !rule.Enabled {
		return false
	}
	for _, cond := range rule.Conditions {
		if !e.evaluateCondition(cond, snapshot) {
			return false
		}
	}
	return true
}

func (e *RuleEngine) evaluateCondition(cond models.RuleCondition, snapshot map[string]interface{}) bool {
	value, ok := snapshot[cond.Field]
	if !ok {
		return false
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return toString(value) == toString(cond.Value)
	case models.OperatorNotEquals:
		return toString(value) != toString(cond.Value)
	case models.OperatorContains:
		return strings.Contains(toString(value), toString(cond.Value))
	case models.OperatorGreaterThan:
		current, ok1 := toFloat(value)
		threshold, ok2 := toFloat(cond.Value)
		if !ok1 || !ok2 {
			e.logger.Debug("condition values are not numeric",
				zap.String("field", cond.Field))
			return false
		}
		return current > threshold
	case models.OperatorLessThan:
		current, ok1 := toFloat(value)
		threshold, ok2 := toFloat(cond.Value)
		if !ok1 || !ok2 {
			e.logger.Debug("condition values are not numeric",
				zap.String("field", cond.Field))
			return false
		}
		return current < threshold
	case models.OperatorMatchesRegex:
		matched, err := regexp.MatchString(toString(cond.Value), toString(value))
		if err != nil {
			e.logger.Warn("invalid rule regex",
				zap.String("field", cond.Field),
				zap.Error(err))
			return false
		}
		return matched
	case models.OperatorInList:
		return inList(toString(value), cond.Value)
	default:
		e.logger.Warn("unknown rule operator",
			zap.String("operator", string(cond.Operator)),
			zap.String("field", cond.Field))
		return false
	}
}

// ApplyActions executes every action of a matched rule against the
// alert. Unknown action types are ignored with a warning.
func (e *RuleEngine) ApplyActions(rule *models.AlertRule, alert *models.Alert, sink ActionSink) {
	e.ApplyActionList(rule.Actions, alert, sink)
}

func (e *RuleEngine) ApplyActionList(actions []models.RuleAction, alert *models.Alert, sink ActionSink) {
	for _, action := range actions {
		e.applyAction(action, alert, sink)
	}
}

func (e *RuleEngine) applyAction(action models.RuleAction, alert *models.Alert, sink ActionSink) {
	switch action.Type {
	case models.ActionSetCategory:
		if v := toString(action.Value); v != "" {
			alert.Category = v
		}
	case models.ActionAddTag:
		switch v := action.Value.(type) {
		case []string:
			for _, tag := range v {
				alert.AddTag(tag)
			}
		case []interface{}:
			for _, tag := range v {
				alert.AddTag(toString(tag))
			}
		default:
			if tag := toString(v); tag != "" {
				alert.AddTag(tag)
			}
		}
	case models.ActionSetMetadata:
		if action.Key != "" {
			if alert.Metadata == nil {
				alert.Metadata = make(map[string]interface{})
			}
			alert.Metadata[action.Key] = action.Value
		}
	case models.ActionEscalate:
		alert.Escalate()
	case models.ActionSuppress:
		reason := action.Reason
		if reason == "" {
			reason = "Suppressed by rule"
		}
		alert.Suppress(reason)
	case models.ActionNotify:
		channel := action.Channel
		if channel == "" {
			channel = "all"
		}
		if sink != nil {
			sink.Notify(alert, channel)
		}
	case models.ActionExecuteHandler:
		if action.Handler != "" && sink != nil {
			sink.ExecuteHandler(action.Handler, alert)
		}
	default:
		e.logger.Warn("unknown rule action",
			zap.String("type", string(action.Type)),
			zap.String("alert_id", alert.ID))
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func inList(value string, list interface{}) bool {
	switch l := list.(type) {
	case []string:
		for _, item := range l {
			if value == item {
				return true
			}
		}
	case []interface{}:
		for _, item := range l {
			if value == toString(item) {
				return true
			}
		}
	}
	return false
}
