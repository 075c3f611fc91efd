package engine

import "context"

func (e *Engine) execPlayerChoice(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	cfg, ok := node.Config.(*PlayerChoiceConfig)
	if !ok {
		return execResult{}
	}

	if cfg.IntroMessage != "" {
		list := NumberedChoiceList(cfg.Choices)
		text := Substitute(cfg.IntroMessage, e.session, substitutionContext{Choices: list})
		e.publish(ctx, newAIMessage(text, cfg.IntroSuppressLLM, flow.ID, node.ID))
	}
	if cfg.AIPrompt != "" {
		text := Substitute(cfg.AIPrompt, e.session, substitutionContext{})
		e.publish(ctx, newAIMessage(text, cfg.AIPromptSuppressLLM, flow.ID, node.ID))
	}

	key := pendingKey(flow.ID, node.ID)
	e.playerChoices[key] = &PlayerChoicePending{FlowID: flow.ID, NodeID: node.ID, Choices: cfg.Choices}
	e.publish(ctx, newPlayerChoiceEnvelope(node.ID, cfg.Description, cfg.Choices))
	_ = priority
	_ = notify
	return execResult{wait: true}
}

func (e *Engine) execSimpleAB(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	cfg, ok := node.Config.(*SimpleABConfig)
	if !ok {
		return execResult{}
	}
	choices := []ChoiceOption{{ID: "a", Label: cfg.LabelA}, {ID: "b", Label: cfg.LabelB}}
	key := pendingKey(flow.ID, node.ID)
	e.playerChoices[key] = &PlayerChoicePending{FlowID: flow.ID, NodeID: node.ID, Choices: choices, IsSimpleAB: true}
	e.publish(ctx, newSimpleABEnvelope(node.ID, *cfg))
	_ = priority
	_ = notify
	return execResult{wait: true}
}

func (e *Engine) execInput(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	cfg, ok := node.Config.(*InputConfig)
	if !ok {
		return execResult{}
	}
	key := pendingKey(flow.ID, node.ID)
	e.inputs[key] = &InputPending{FlowID: flow.ID, NodeID: node.ID, VariableName: cfg.VariableName, InputType: cfg.InputType}
	e.publish(ctx, newInputRequestEnvelope(node.ID, *cfg))
	_ = priority
	_ = notify
	return execResult{wait: true}
}

func (e *Engine) execPauseResume(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	cfg, ok := node.Config.(*PauseResumeConfig)
	if !ok {
		return execResult{}
	}

	for _, edge := range flow.EdgesFromHandle(node.ID, "source-pause") {
		e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, priority, notify)
	}

	key := pendingKey(flow.ID, node.ID)
	e.pauseResumes[key] = &PauseResumePending{
		FlowID:            flow.ID,
		NodeID:            node.ID,
		MessagesRemaining: cfg.ResumeAfterValue,
		ManualOnly:        cfg.ResumeAfterType == "manual",
	}
	return execResult{wait: true}
}
