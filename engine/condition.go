package engine

import (
	"strconv"
	"strings"
)

// EvaluateConditions evaluates conds in order and returns the index of the
// first one that matches, or matched=false if none do. Honors onlyOnce via
// the caller-supplied key against state.ExecutedOnceConditions.
func EvaluateConditions(conds []SubCondition, session *SessionState, onlyOnce bool, key string, state *FlowState) (matched bool, index int) {
	if onlyOnce && state.ExecutedOnceConditions[key] {
		return false, 0
	}

	for i, c := range conds {
		if evaluateSubCondition(c, session) {
			if onlyOnce {
				state.ExecutedOnceConditions[key] = true
			}
			return true, i
		}
	}
	return false, 0
}

func evaluateSubCondition(c SubCondition, session *SessionState) bool {
	actual := resolveVariable(c.Variable, session)

	switch c.Operator {
	case "contains":
		return containsFold(actual, c.Value)
	case "==":
		if af, aok := parseFloat(actual); aok {
			if vf, vok := parseFloat(c.Value); vok {
				return af == vf
			}
		}
		return actual == c.Value
	case "!=":
		if af, aok := parseFloat(actual); aok {
			if vf, vok := parseFloat(c.Value); vok {
				return af != vf
			}
		}
		return actual != c.Value
	case ">", "<", ">=", "<=":
		af, aok := parseFloat(actual)
		vf, vok := parseFloat(c.Value)
		if !aok || !vok {
			return false
		}
		switch c.Operator {
		case ">":
			return af > vf
		case "<":
			return af < vf
		case ">=":
			return af >= vf
		case "<=":
			return af <= vf
		}
	case "range":
		af, aok := parseFloat(actual)
		lo, lok := parseFloat(c.Value)
		hi, hok := parseFloat(c.Value2)
		if !aok || !lok || !hok {
			return false
		}
		return af >= lo && af <= hi
	}
	return false
}

// resolveVariable resolves a condition's Variable name to its current string
// value: the three session fields, or a flow variable.
func resolveVariable(name string, session *SessionState) string {
	switch name {
	case "capacity":
		return strconv.Itoa(session.Capacity)
	case "pain":
		return strconv.Itoa(session.Pain)
	case "emotion":
		return session.Emotion
	default:
		return session.FlowVariables[name]
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
