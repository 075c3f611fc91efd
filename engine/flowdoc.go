package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// flowDocument is the on-disk JSON shape of a flow file: a flat node list
// (each carrying its own typed config as a raw object) plus an edge list.
// This is the wire format cmd/flowengine reads with --flow.
type flowDocument struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Nodes []flowDocNode   `json:"nodes"`
	Edges []flowDocEdge   `json:"edges"`
}

type flowDocNode struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Config json.RawMessage `json:"config"`
}

type flowDocEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Handle string `json:"handle,omitempty"`
}

// DecodeFlow parses a flow document (the JSON shape produced by the flow
// editor) into a validated *Flow. Returns a *ConfigError for any node whose
// type is unrecognized, or any edge NewFlow itself rejects.
func DecodeFlow(data []byte) (*Flow, error) {
	var doc flowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flow document: %w", err)
	}

	nodes := make([]*Node, 0, len(doc.Nodes))
	for _, dn := range doc.Nodes {
		cfg, err := decodeNodeConfig(dn.Type, dn.Config)
		if err != nil {
			return nil, &ConfigError{FlowID: doc.ID, NodeID: dn.ID, Reason: err.Error()}
		}
		nodes = append(nodes, &Node{ID: dn.ID, Type: dn.Type, Config: cfg})
	}

	edges := make([]Edge, 0, len(doc.Edges))
	for _, de := range doc.Edges {
		edges = append(edges, Edge{From: de.From, To: de.To, Handle: de.Handle})
	}

	return NewFlow(doc.ID, doc.Name, nodes, edges)
}

// decodeNodeConfig unmarshals raw into the NodeConfig implementation that
// corresponds to t. Challenge node types all decode into ChallengeConfig
// with Kind set to t.
func decodeNodeConfig(t NodeType, raw json.RawMessage) (NodeConfig, error) {
	if t.IsChallenge() {
		var cfg ChallengeConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", t, err)
		}
		cfg.Kind = t
		return &cfg, nil
	}

	switch t {
	case NodeTrigger:
		var cfg TriggerConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, wrapDecodeErr(t, err)
		}
		if !hasKeyFold(raw, "fireOnlyOnce") {
			cfg.FireOnlyOnce = true
		}
		return &cfg, nil
	case NodeButtonPress:
		var cfg ButtonPressConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeAction:
		var cfg ActionConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeCondition:
		var cfg ConditionConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeBranch:
		var cfg BranchConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeDelay:
		var cfg DelayConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodePlayerChoice:
		var cfg PlayerChoiceConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeSimpleAB:
		var cfg SimpleABConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeInput:
		var cfg InputConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeRandomNumber:
		var cfg RandomNumberConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	case NodeCapacityAIMessage, NodeCapacityPlayerMessage:
		var cfg CapacityMessageConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, wrapDecodeErr(t, err)
		}
		if cfg.ForcedPerspective == "" {
			if t == NodeCapacityPlayerMessage {
				cfg.ForcedPerspective = "player"
			} else {
				cfg.ForcedPerspective = "character"
			}
		}
		return &cfg, nil
	case NodePauseResume:
		var cfg PauseResumeConfig
		err := json.Unmarshal(raw, &cfg)
		return &cfg, wrapDecodeErr(t, err)
	default:
		return nil, fmt.Errorf("unknown node type %q", t)
	}
}

func wrapDecodeErr(t NodeType, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("decode %s config: %w", t, err)
}

// hasKeyFold reports whether raw (a JSON object) has a key matching name
// case-insensitively, the same matching encoding/json itself falls back to
// when no exact field-name match exists.
func hasKeyFold(raw json.RawMessage, name string) bool {
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return false
	}
	for k := range m {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
