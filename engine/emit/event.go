// Package emit provides event emission and observability for the flow engine.
//
// There is no separate logging package: an Event plus an Emitter is the
// engine's log line. Every dispatcher decision, node transition, pending-op
// registration, and error passes through here.
package emit

// Event represents an observability event emitted during flow execution.
//
// Events give detailed insight into engine behavior:
//   - Dispatcher matches and preemption decisions
//   - Node enter/exit transitions
//   - Pending-op registration and resumption
//   - Errors and config problems
//   - Broadcast and device I/O outcomes
type Event struct {
	// RunID identifies the engine session that emitted this event. For the
	// flow engine this is the session/run identifier, stable for the life of
	// a SessionState.
	RunID string

	// Step is the engine's message counter when the event was emitted: it
	// advances by one on each player_speaks/ai_speaks event and is zero
	// before the first such message. Session-level events (emergency stop
	// included) carry the current counter like any other event.
	Step int

	// FlowID identifies which active flow emitted this event. Empty for
	// session-level events.
	FlowID string

	// NodeID identifies which node emitted this event. Empty string for
	// flow-level or session-level events.
	NodeID string

	// Msg is a short, stable event name. The engine emits "node_enter",
	// "node_exit", "trigger_match", "abort", "config_error",
	// "flow_activated", "flow_deactivated", and "store_save_failed".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Keys the engine sets:
	//   - "priority": ActiveFlow priority tier
	//   - "abort_epoch": the abort epoch at the time of the event
	//   - "error": error details
	//   - "reason": config error reason
	//   - "type": node type, on node_enter
	//   - "wait", "aborted": node outcome, on node_exit
	Meta map[string]interface{}
}
