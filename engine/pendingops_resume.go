package engine

import "context"

// handleCycleCompleteLocked is pending-op resumption source 1 (§4.4).
func (e *Engine) handleCycleCompleteLocked(ctx context.Context, deviceKey string) {
	p, ok := e.cycleCompletions[deviceKey]
	if !ok {
		return
	}
	delete(e.cycleCompletions, deviceKey)
	delete(e.deviceMonitors, deviceKey)

	if p.Infinite {
		e.publish(ctx, newInfiniteCycleEnvelope(false, deviceKey, p.FlowID, p.NodeID))
	}

	flow := e.flowByID(p.FlowID)
	if flow == nil {
		return
	}
	priority, notify := e.executionContext(p.FlowID)
	for _, edge := range flow.EdgesFromHandle(p.NodeID, "completion") {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
}

// handleDeviceOnCompleteLocked is pending-op resumption source 2.
func (e *Engine) handleDeviceOnCompleteLocked(ctx context.Context, deviceKey string) {
	p, ok := e.deviceOnCompletions[deviceKey]
	if !ok {
		return
	}
	delete(e.deviceOnCompletions, deviceKey)
	delete(e.deviceMonitors, deviceKey)

	flow := e.flowByID(p.FlowID)
	if flow == nil {
		return
	}
	priority, notify := e.executionContext(p.FlowID)
	for _, edge := range flow.EdgesFromHandle(p.NodeID, "completion") {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
}

// checkDeviceMonitorsLocked is pending-op resumption source 3: called after
// every capacity/pain/emotion mutation.
func (e *Engine) checkDeviceMonitorsLocked(ctx context.Context) {
	for key, m := range e.deviceMonitors {
		if !e.monitorSatisfied(m) {
			continue
		}
		delete(e.deviceMonitors, key)
		if m.MonitorKind == "cycle" {
			_, _ = e.driver.StopCycle(ctx, m.Device)
			e.handleCycleCompleteLocked(ctx, key)
		} else {
			_ = e.driver.TurnOff(ctx, m.Device)
			e.handleDeviceOnCompleteLocked(ctx, key)
		}
	}
}

func (e *Engine) monitorSatisfied(m *DeviceMonitor) bool {
	var actual float64
	switch m.Type {
	case "capacity":
		actual = float64(e.session.Capacity)
	case "pain":
		actual = float64(e.session.Pain)
	case "emotion":
		return m.Operator == "equals" && e.session.Emotion == m.Value
	default:
		return false
	}
	threshold, ok := parseFloat(m.Value)
	if !ok {
		threshold = m.Threshold
	}
	return matchComparator(m.Operator, actual, threshold, m.Threshold)
}

// handlePlayerChoiceLocked is pending-op resumption source 4.
func (e *Engine) handlePlayerChoiceLocked(ctx context.Context, flowID, nodeID, choiceID, label string) error {
	key := pendingKey(flowID, nodeID)
	p, ok := e.playerChoices[key]
	if !ok {
		return nil
	}
	delete(e.playerChoices, key)

	var chosen *ChoiceOption
	for i := range p.Choices {
		if p.Choices[i].ID == choiceID {
			chosen = &p.Choices[i]
			break
		}
	}

	if chosen != nil && !p.IsSimpleAB {
		e.emitChoiceResponse(ctx, flowID, nodeID, *chosen, label)
	}

	flow := e.flowByID(flowID)
	if flow == nil {
		return nil
	}
	priority, notify := e.executionContext(flowID)
	for _, edge := range flow.EdgesFromHandle(nodeID, choiceID) {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
	return nil
}

func (e *Engine) emitChoiceResponse(ctx context.Context, flowID, nodeID string, choice ChoiceOption, label string) {
	var text string
	generated := false
	suppress := choice.PlayerResponseSuppressLLM
	switch {
	case (choice.UseLLMEnhancement || choice.PlayerResponse == "") && e.generator != nil:
		sys := choice.LLMSystemPrompt
		prompt := Substitute(choice.PlayerResponse, e.session, substitutionContext{Choice: label})
		if prompt == "" {
			prompt = label
		}
		out, err := e.generator.Generate(ctx, sys, prompt)
		if err != nil {
			e.publish(ctx, newErrorEnvelope(err.Error(), "player_choice"))
			text = prompt
		} else {
			text = out
			generated = true
		}
	case choice.PlayerResponse != "":
		text = Substitute(choice.PlayerResponse, e.session, substitutionContext{Choice: label})
	default:
		text = label
	}

	msg := ChatMessage{Content: text, Sender: "player", Generated: generated, FromChoice: true}
	e.session.AppendChatMessage(msg, e.chatHistoryMax)
	e.publish(ctx, newChatMessage(msg))
	_ = suppress
	_ = nodeID
}

// handleChallengeResultLocked is pending-op resumption source 5, implementing
// the challenge-result half of §4.3's challenge node description.
func (e *Engine) handleChallengeResultLocked(ctx context.Context, flowID, nodeID, outcomeID string, details map[string]interface{}) error {
	key := pendingKey(flowID, nodeID)
	p, ok := e.challenges[key]
	if !ok {
		return nil
	}
	delete(e.challenges, key)

	e.session.LastChallengeResult = outcomeID
	sc := substitutionContext{}
	if v, ok := details["segment"].(string); ok {
		sc.Segment = v
	}
	if v, ok := details["segments"].(string); ok {
		sc.Segments = v
	}
	if v, ok := details["roll"].(string); ok {
		sc.Roll = v
	}
	if v, ok := details["slots"].(string); ok {
		sc.Slots = v
	}

	if msg, ok := p.Config.ResultMessages[outcomeID]; ok && msg != "" {
		text := Substitute(msg, e.session, sc)
		e.publish(ctx, newAIMessage(text, p.Config.ResultSuppressLLM, flowID, nodeID))
	}

	flow := e.flowByID(flowID)
	if flow == nil {
		return nil
	}
	priority, notify := e.executionContext(flowID)
	for _, edge := range flow.EdgesFromHandle(nodeID, outcomeID) {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
	return nil
}

// handleInputResponseLocked is pending-op resumption source 6.
func (e *Engine) handleInputResponseLocked(ctx context.Context, flowID, nodeID, value string) error {
	key := pendingKey(flowID, nodeID)
	p, ok := e.inputs[key]
	if !ok {
		return nil
	}
	delete(e.inputs, key)

	if p.VariableName != "" {
		e.session.FlowVariables[p.VariableName] = value
	}

	flow := e.flowByID(flowID)
	if flow == nil {
		return nil
	}
	priority, notify := e.executionContext(flowID)
	for _, edge := range flow.EdgesFrom(nodeID) {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
	return nil
}

// checkPendingPausesLocked is pending-op resumption source 7: run before
// trigger matching on every player/AI message event (§4.1 step 2, §5's
// ordering guarantee).
func (e *Engine) checkPendingPausesLocked(ctx context.Context) {
	for key, p := range e.pauseResumes {
		if p.ManualOnly {
			continue
		}
		p.MessagesRemaining--
		if p.MessagesRemaining <= 0 {
			delete(e.pauseResumes, key)
			e.resumeChainAfterPause(ctx, p.FlowID, p.NodeID)
		}
	}
}

func (e *Engine) resumeChainAfterPause(ctx context.Context, flowID, nodeID string) {
	flow := e.flowByID(flowID)
	if flow == nil {
		return
	}
	priority, notify := e.executionContext(flowID)
	for _, edge := range flow.EdgesFromHandle(nodeID, "source-resume") {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}
}

func (e *Engine) flowByID(flowID string) *Flow {
	af, ok := e.activeFlows[flowID]
	if !ok {
		return nil
	}
	return af.Flow
}

// executionContext returns the inherited priority/notify of flowID's
// ActiveExecution, per §4.4's "all six resume paths inherit... from the
// ActiveExecution record".
func (e *Engine) executionContext(flowID string) (priority int, notify bool) {
	if ex, ok := e.activeExecutions[flowID]; ok {
		return ex.TriggerPriority, ex.Notify
	}
	return 0, false
}
