package engine

import "testing"

func TestDecodeFlowBuildsTriggerAndActionNodes(t *testing.T) {
	doc := []byte(`{
		"id": "greet",
		"name": "Greeting",
		"nodes": [
			{"id": "t1", "type": "trigger", "config": {"triggerType": "new_session", "notify": true}},
			{"id": "a1", "type": "action", "config": {"kind": "send_message", "text": "hello"}}
		],
		"edges": [
			{"from": "t1", "to": "a1"}
		]
	}`)

	flow, err := DecodeFlow(doc)
	if err != nil {
		t.Fatalf("DecodeFlow: %v", err)
	}
	if flow.ID != "greet" {
		t.Errorf("ID = %q, want greet", flow.ID)
	}
	n, ok := flow.Nodes["a1"].Config.(*ActionConfig)
	if !ok {
		t.Fatalf("a1 config type = %T, want *ActionConfig", flow.Nodes["a1"].Config)
	}
	if n.Kind != ActionSendMessage || n.Text != "hello" {
		t.Errorf("unexpected action config: %+v", n)
	}
	if len(flow.EdgesFrom("t1")) != 1 {
		t.Errorf("expected 1 edge from t1")
	}
}

func TestDecodeFlowTriggerFireOnlyOnceDefaultsTrue(t *testing.T) {
	doc := []byte(`{
		"id": "once",
		"nodes": [{"id": "t1", "type": "trigger", "config": {"triggerType": "new_session"}}],
		"edges": []
	}`)

	flow, err := DecodeFlow(doc)
	if err != nil {
		t.Fatalf("DecodeFlow: %v", err)
	}
	cfg, ok := flow.Nodes["t1"].Config.(*TriggerConfig)
	if !ok {
		t.Fatalf("t1 config type = %T, want *TriggerConfig", flow.Nodes["t1"].Config)
	}
	if !cfg.FireOnlyOnce {
		t.Error("FireOnlyOnce = false, want true when the field is omitted")
	}
}

func TestDecodeFlowTriggerFireOnlyOnceExplicitFalse(t *testing.T) {
	doc := []byte(`{
		"id": "repeat",
		"nodes": [{"id": "t1", "type": "trigger", "config": {"triggerType": "new_session", "fireOnlyOnce": false}}],
		"edges": []
	}`)

	flow, err := DecodeFlow(doc)
	if err != nil {
		t.Fatalf("DecodeFlow: %v", err)
	}
	cfg := flow.Nodes["t1"].Config.(*TriggerConfig)
	if cfg.FireOnlyOnce {
		t.Error("FireOnlyOnce = true, want false when explicitly set")
	}
}

func TestDecodeFlowRejectsDanglingEdge(t *testing.T) {
	doc := []byte(`{
		"id": "broken",
		"nodes": [{"id": "t1", "type": "trigger", "config": {}}],
		"edges": [{"from": "t1", "to": "missing"}]
	}`)

	_, err := DecodeFlow(doc)
	if err == nil {
		t.Fatal("expected error for dangling edge")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestDecodeFlowRejectsUnknownNodeType(t *testing.T) {
	doc := []byte(`{
		"id": "bad",
		"nodes": [{"id": "x", "type": "not_a_real_type", "config": {}}],
		"edges": []
	}`)

	_, err := DecodeFlow(doc)
	if err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestDecodeFlowChallengeNodeSetsKind(t *testing.T) {
	doc := []byte(`{
		"id": "game",
		"nodes": [{"id": "c1", "type": "dice_roll", "config": {"possibleOutcomes": ["1","2"]}}],
		"edges": []
	}`)

	flow, err := DecodeFlow(doc)
	if err != nil {
		t.Fatalf("DecodeFlow: %v", err)
	}
	cfg, ok := flow.Nodes["c1"].Config.(*ChallengeConfig)
	if !ok {
		t.Fatalf("c1 config type = %T, want *ChallengeConfig", flow.Nodes["c1"].Config)
	}
	if cfg.Kind != NodeDiceRoll {
		t.Errorf("Kind = %q, want dice_roll", cfg.Kind)
	}
}
