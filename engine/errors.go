package engine

import "fmt"

// ConfigError reports a flow-authoring defect: a dangling edge, an unknown
// device alias, a missing required field on a node. Per the error taxonomy,
// these are logged and the offending node or flow is skipped — they never
// propagate as a Go error out of the dispatcher or interpreter's public
// surface except from flow construction (NewFlow) and ActivateFlow.
type ConfigError struct {
	FlowID string
	NodeID string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("flow %s: node %s: %s", e.FlowID, e.NodeID, e.Reason)
	}
	return fmt.Sprintf("flow %s: %s", e.FlowID, e.Reason)
}

// DeviceError reports a device-driver failure (resolver miss, transient I/O
// error, brand transport failure). The interpreter broadcasts it and
// continues the chain treating the action as failed, per §7 — it is never
// returned to callers of HandleEvent.
type DeviceError struct {
	Device string
	Reason string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Device, e.Reason)
}

// GenerationError reports an LLM generation failure. Per §7 this is
// broadcast and treated as if the message had been delivered; the engine
// never retries at this layer.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: %s", e.Reason)
}
