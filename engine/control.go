package engine

import "context"

// activateFlowLocked runs only on the executor goroutine.
func (e *Engine) activateFlowLocked(flow *Flow, priority int) error {
	if flow == nil {
		return &ConfigError{Reason: "activate: nil flow"}
	}
	e.activeFlows[flow.ID] = &ActiveFlow{Flow: flow, Priority: priority}
	e.flowStates[flow.ID] = NewFlowState()
	e.emitter.Emit(newEvent(e.runID, e.step, flow.ID, "", "flow_activated", map[string]interface{}{"priority": priority}))
	return nil
}

func (e *Engine) deactivateFlowLocked(flowID string) error {
	delete(e.activeFlows, flowID)
	delete(e.flowStates, flowID)
	delete(e.activeExecutions, flowID)
	prefix := flowID + ":"
	for key := range e.fireOnceNodes {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(e.fireOnceNodes, key)
		}
	}
	e.emitter.Emit(newEvent(e.runID, e.step, flowID, "", "flow_deactivated", nil))
	return nil
}

// emergencyStopLocked implements §4.5's emergency-stop semantics: bump the
// abort epoch so every outstanding continuation becomes a no-op, turn off
// every device with recorded execution state, and drop all pending ops.
// fireOnceNodes survives, per the spec's note that fire-only-once markers
// are a property of the flow's history, not of any particular run of it.
func (e *Engine) emergencyStopLocked() {
	e.abortEpoch++
	e.aborted = true

	ctx := context.Background()
	for key, state := range e.session.ExecutionHistory {
		if state.State == "on" || state.Cycling {
			if e.driver != nil {
				if ref, err := e.resolveDevice(key); err == nil {
					_ = e.driver.TurnOff(ctx, ref)
				}
			}
		}
	}
	e.session.ExecutionHistory = make(map[string]DeviceExecState)

	e.cycleCompletions = make(map[string]*CycleCompletion)
	e.deviceOnCompletions = make(map[string]*DeviceOnCompletion)
	e.playerChoices = make(map[string]*PlayerChoicePending)
	e.challenges = make(map[string]*ChallengePending)
	e.inputs = make(map[string]*InputPending)
	e.pauseResumes = make(map[string]*PauseResumePending)
	e.deviceMonitors = make(map[string]*DeviceMonitor)
	e.activeExecutions = make(map[string]*ActiveExecution)
	e.runningPriority = nil
	e.runningPriorityFlow = ""

	e.publish(ctx, newFlowToast("emergency_stop", "All flows stopped.", "", 0, 0, nil))
	e.emitter.Emit(newEvent(e.runID, e.step, "", "", "abort", map[string]interface{}{"abort_epoch": e.abortEpoch}))

	e.aborted = false
}

func (e *Engine) pauseFlowsLocked(reason string) {
	e.paused = true
	e.pauseReason = reason
	e.publish(context.Background(), newFlowPaused(true, reason))
}

func (e *Engine) resumeFlowsLocked(ctx context.Context) {
	e.paused = false
	e.pauseReason = ""
	e.publish(ctx, newFlowPaused(false, ""))

	for key, p := range e.pauseResumes {
		if p.ManualOnly {
			delete(e.pauseResumes, key)
			e.resumeChainAfterPause(ctx, p.FlowID, p.NodeID)
		}
	}
}

// publish delivers env via the configured Publisher, honoring abort-epoch
// gating for flow-carrying envelope types, and swallows a nil Publisher.
func (e *Engine) publish(ctx context.Context, env Envelope) {
	if e.publisher == nil {
		return
	}
	if e.aborted && IsFlowCarrying(env.Type) {
		return
	}
	_ = e.publisher.Publish(ctx, env)
}
