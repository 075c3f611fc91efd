package engine

import "testing"

func newTestSession() *SessionState {
	s := NewSessionState()
	s.Capacity = 40
	s.Pain = 6
	s.Emotion = "anxious"
	s.FlowVariables["mood"] = "Restless"
	return s
}

func TestEvaluateSubConditionOperators(t *testing.T) {
	session := newTestSession()

	cases := []struct {
		name string
		cond SubCondition
		want bool
	}{
		{"contains case-insensitive", SubCondition{Variable: "mood", Operator: "contains", Value: "rest"}, true},
		{"contains no match", SubCondition{Variable: "mood", Operator: "contains", Value: "calm"}, false},
		{"numeric equal", SubCondition{Variable: "capacity", Operator: "==", Value: "40"}, true},
		{"numeric not equal", SubCondition{Variable: "capacity", Operator: "!=", Value: "40"}, false},
		{"string equal fallback", SubCondition{Variable: "emotion", Operator: "==", Value: "anxious"}, true},
		{"greater than", SubCondition{Variable: "pain", Operator: ">", Value: "5"}, true},
		{"less than false", SubCondition{Variable: "pain", Operator: "<", Value: "5"}, false},
		{"gte boundary", SubCondition{Variable: "pain", Operator: ">=", Value: "6"}, true},
		{"lte boundary", SubCondition{Variable: "pain", Operator: "<=", Value: "6"}, true},
		{"range inside", SubCondition{Variable: "capacity", Operator: "range", Value: "0", Value2: "50"}, true},
		{"range outside", SubCondition{Variable: "capacity", Operator: "range", Value: "50", Value2: "100"}, false},
		{"non-numeric comparison is false", SubCondition{Variable: "emotion", Operator: ">", Value: "1"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evaluateSubCondition(tc.cond, session); got != tc.want {
				t.Errorf("evaluateSubCondition(%+v) = %v, want %v", tc.cond, got, tc.want)
			}
		})
	}
}

func TestEvaluateConditionsReturnsFirstMatch(t *testing.T) {
	session := newTestSession()
	conds := []SubCondition{
		{Variable: "pain", Operator: "==", Value: "0"},
		{Variable: "pain", Operator: ">", Value: "5"},
		{Variable: "pain", Operator: ">", Value: "0"},
	}

	matched, idx := EvaluateConditions(conds, session, false, "", NewFlowState())
	if !matched || idx != 1 {
		t.Errorf("matched=%v idx=%d, want true,1", matched, idx)
	}
}

func TestEvaluateConditionsOnlyOnce(t *testing.T) {
	session := newTestSession()
	state := NewFlowState()
	conds := []SubCondition{{Variable: "pain", Operator: ">", Value: "0"}}

	matched, _ := EvaluateConditions(conds, session, true, "node-a", state)
	if !matched {
		t.Fatal("expected first evaluation to match")
	}

	matched, _ = EvaluateConditions(conds, session, true, "node-a", state)
	if matched {
		t.Error("expected second onlyOnce evaluation to be suppressed")
	}

	matched, _ = EvaluateConditions(conds, session, true, "node-b", state)
	if !matched {
		t.Error("a different onlyOnce key should still be allowed to match")
	}
}

func TestEvaluateConditionsNoMatch(t *testing.T) {
	session := newTestSession()
	conds := []SubCondition{{Variable: "pain", Operator: "==", Value: "99"}}

	if matched, _ := EvaluateConditions(conds, session, false, "", NewFlowState()); matched {
		t.Error("expected no match")
	}
}
