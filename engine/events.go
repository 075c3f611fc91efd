package engine

import "github.com/flowcore/flowengine/engine/emit"

// newEvent builds an emit.Event for the engine's own diagnostic emissions
// (trigger matches, preemption, node transitions, pending-op lifecycle).
func newEvent(runID string, step int, flowID, nodeID, msg string, meta map[string]interface{}) emit.Event {
	return emit.Event{
		RunID:  runID,
		Step:   step,
		FlowID: flowID,
		NodeID: nodeID,
		Msg:    msg,
		Meta:   meta,
	}
}
