package engine

import "context"

// execChallenge implements the pre-message/register half of §4.3's
// challenge-node description, shared by all ten challenge node types. There
// is no pre-delay step: the challenge envelope is published in the same call
// as the pre-message.
func (e *Engine) execChallenge(ctx context.Context, flow *Flow, node *Node, priority int, notify bool) execResult {
	cfg, ok := node.Config.(*ChallengeConfig)
	if !ok {
		return execResult{}
	}

	if cfg.PreMessage != "" {
		text := Substitute(cfg.PreMessage, e.session, substitutionContext{})
		env := newAIMessage(text, cfg.PreMessageSuppressLLM, flow.ID, node.ID)
		env.Payload["isChallengePreMessage"] = true
		e.publish(ctx, env)
	}

	key := pendingKey(flow.ID, node.ID)
	e.challenges[key] = &ChallengePending{FlowID: flow.ID, NodeID: node.ID, ChallengeType: node.Type, Config: *cfg}
	e.publish(ctx, newChallengeEnvelope(node.ID, node.Type, *cfg))
	_ = priority
	_ = notify
	return execResult{wait: true}
}
