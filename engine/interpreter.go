package engine

import "context"

// maxExecutionDepth caps same-event recursive node traversal per flow, as a
// safety net against unbounded self-triggering loops in graphs that contain
// cycles without a reachable fireOnlyOnce guard.
const maxExecutionDepth = 256

// execResult is what a node executor hands back to executeFromNode, telling
// it which outgoing edges (if any) to continue along.
type execResult struct {
	wait      bool
	aborted   bool
	handles   []string // explicit handle(s) to follow; nil means "use deferred semantics below"
	deferred  string    // "device_on" or "start_cycle": follow "immediate" now, "completion" later
	fallback  string    // handle to use if no edge matches any of handles (e.g. "global")
}

// executeFromNode implements §4.2. It runs only on the executor goroutine.
func (e *Engine) executeFromNode(ctx context.Context, flow *Flow, nodeID, fromHandle string, skipTriggers bool, inheritedPriority int, inheritedNotify bool) {
	if e.aborted {
		return
	}

	node, ok := flow.Nodes[nodeID]
	if !ok {
		e.emitter.Emit(newEvent(e.runID, e.step, flow.ID, nodeID, "config_error", map[string]interface{}{"reason": "missing node"}))
		return
	}

	if skipTriggers && (node.Type == NodeTrigger || node.Type == NodeButtonPress) {
		return
	}

	if e.executionDepths[flow.ID] >= maxExecutionDepth {
		e.emitter.Emit(newEvent(e.runID, e.step, flow.ID, nodeID, "config_error", map[string]interface{}{"reason": "max execution depth exceeded"}))
		return
	}

	e.executionDepths[flow.ID]++
	entering := e.executionDepths[flow.ID] == 1
	if entering && (node.Type == NodeTrigger || node.Type == NodeButtonPress) {
		e.activeExecutions[flow.ID] = &ActiveExecution{
			FlowID:          flow.ID,
			FlowName:        flow.Name,
			TriggerPriority: inheritedPriority,
			HasPriority:     inheritedPriority != 0,
			Notify:          inheritedNotify,
			CurrentNodeID:   nodeID,
			TotalSteps:      len(flow.Nodes),
			CurrentStep:     1,
		}
		if inheritedNotify {
			e.publish(ctx, newFlowToast("start", "", flow.Name, 1, len(flow.Nodes), nil))
		}
	}

	e.emitter.Emit(newEvent(e.runID, e.step, flow.ID, nodeID, "node_enter", map[string]interface{}{"type": string(node.Type)}))

	res := e.dispatchNode(ctx, flow, node, inheritedPriority, inheritedNotify)

	e.emitter.Emit(newEvent(e.runID, e.step, flow.ID, nodeID, "node_exit", map[string]interface{}{"wait": res.wait, "aborted": res.aborted}))

	if res.aborted || e.aborted {
		e.drainDepth(ctx, flow.ID)
		return
	}
	if res.wait {
		e.drainDepth(ctx, flow.ID)
		return
	}

	edges := e.selectEdges(flow, node, res)
	for _, edge := range edges {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, inheritedPriority, inheritedNotify)
		if e.aborted {
			break
		}
	}

	e.drainDepth(ctx, flow.ID)
}

func (e *Engine) selectEdges(flow *Flow, node *Node, res execResult) []Edge {
	switch res.deferred {
	case "device_on", "start_cycle":
		return flow.EdgesFromHandle(node.ID, "immediate")
	}

	if len(res.handles) > 0 {
		var edges []Edge
		for _, h := range res.handles {
			edges = append(edges, flow.EdgesFromHandle(node.ID, h)...)
		}
		if len(edges) == 0 && res.fallback != "" {
			edges = flow.EdgesFromHandle(node.ID, res.fallback)
		}
		return edges
	}

	return flow.EdgesFrom(node.ID)
}

func (e *Engine) drainDepth(ctx context.Context, flowID string) {
	e.executionDepths[flowID]--
	if e.executionDepths[flowID] < 0 {
		e.executionDepths[flowID] = 0
	}
	if e.executionDepths[flowID] == 0 && !e.flowHasPendingOps(flowID) {
		if ex, ok := e.activeExecutions[flowID]; ok {
			if ex.Notify {
				e.publish(ctx, newFlowToast("complete", "", ex.FlowName, ex.TotalSteps, ex.TotalSteps, nil))
			}
			delete(e.activeExecutions, flowID)
		}
		if e.runningPriority != nil && e.runningPriorityFlow == flowID {
			e.runningPriority = nil
			e.runningPriorityFlow = ""
		}
	}
}

func (e *Engine) flowHasPendingOps(flowID string) bool {
	for _, p := range e.cycleCompletions {
		if p.FlowID == flowID {
			return true
		}
	}
	for _, p := range e.deviceOnCompletions {
		if p.FlowID == flowID {
			return true
		}
	}
	for _, p := range e.playerChoices {
		if p.FlowID == flowID {
			return true
		}
	}
	for _, p := range e.challenges {
		if p.FlowID == flowID {
			return true
		}
	}
	for _, p := range e.inputs {
		if p.FlowID == flowID {
			return true
		}
	}
	for _, p := range e.pauseResumes {
		if p.FlowID == flowID {
			return true
		}
	}
	return false
}

// dispatchNode routes to the per-type executor (§4.3), implemented across
// nodeexec_*.go.
func (e *Engine) dispatchNode(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	switch node.Type {
	case NodeTrigger, NodeButtonPress:
		return execResult{}
	case NodeAction:
		return e.execAction(ctx, flow, node)
	case NodeCondition:
		return e.execCondition(flow, node)
	case NodeBranch:
		return e.execBranch(node)
	case NodeDelay:
		return e.execDelay(ctx, flow, node)
	case NodePlayerChoice:
		return e.execPlayerChoice(ctx, flow, node, priority, notify)
	case NodeSimpleAB:
		return e.execSimpleAB(ctx, flow, node, priority, notify)
	case NodeInput:
		return e.execInput(ctx, flow, node, priority, notify)
	case NodeRandomNumber:
		return e.execRandomNumber(node)
	case NodeCapacityAIMessage, NodeCapacityPlayerMessage:
		return e.execCapacityMessage(ctx, flow, node)
	case NodePauseResume:
		return e.execPauseResume(ctx, flow, node, priority, notify)
	default:
		if node.Type.IsChallenge() {
			return e.execChallenge(ctx, flow, node, priority, notify)
		}
	}
	return execResult{}
}
