package engine

import (
	"context"
	"strconv"
	"time"
)

func (e *Engine) execCondition(flow *Flow, node *Node) execResult {
	cfg, ok := node.Config.(*ConditionConfig)
	if !ok {
		return execResult{}
	}
	state := e.flowStates[flow.ID]
	key := pendingKey(flow.ID, node.ID)
	matched, idx := EvaluateConditions(cfg.Conditions, e.session, cfg.OnlyOnce, key, state)
	if !matched {
		return execResult{handles: []string{"false"}}
	}
	return execResult{handles: []string{handleForIndex("true", idx)}}
}

func (e *Engine) execBranch(node *Node) execResult {
	cfg, ok := node.Config.(*BranchConfig)
	if !ok {
		return execResult{}
	}
	if cfg.Mode == "random" {
		idx := weightedChoice(cfg.Weights, e.rng.Float64())
		return execResult{handles: []string{handleForIndex("branch", idx)}}
	}
	return execResult{handles: []string{handleForIndex("branch", 0)}}
}

func weightedChoice(weights []float64, draw float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		if len(weights) == 0 {
			return 0
		}
		return int(draw * float64(len(weights)))
	}
	target := draw * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}

func (e *Engine) execDelay(ctx context.Context, flow *Flow, node *Node) execResult {
	cfg, ok := node.Config.(*DelayConfig)
	if !ok {
		return execResult{}
	}
	secs := ResolveFlowVarNumeric(cfg.Duration, e.session, 0)
	d := time.Duration(secs) * time.Second
	if cfg.Unit == "minutes" {
		d = time.Duration(secs) * time.Minute
	}

	e.scheduleAfter(d, func() {
		if e.aborted {
			return
		}
		for _, edge := range flow.EdgesFrom(node.ID) {
			e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, 0, false)
		}
	})
	return execResult{wait: true}
}

func (e *Engine) execRandomNumber(node *Node) execResult {
	cfg, ok := node.Config.(*RandomNumberConfig)
	if !ok {
		return execResult{}
	}
	lo, hi := cfg.Min, cfg.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo + e.rng.Intn(hi-lo+1)
	if cfg.VariableName != "" {
		e.session.FlowVariables[cfg.VariableName] = strconv.Itoa(v)
	}
	return execResult{}
}

func (e *Engine) execCapacityMessage(ctx context.Context, flow *Flow, node *Node) execResult {
	cfg, ok := node.Config.(*CapacityMessageConfig)
	if !ok {
		return execResult{}
	}
	capacity := float64(e.session.Capacity)
	for _, r := range cfg.Ranges {
		if capacity >= r.Min && capacity <= r.Max {
			text := Substitute(r.Message, e.session, substitutionContext{})
			sender := "character"
			envType := EnvAIMessage
			if cfg.ForcedPerspective == "player" {
				sender = "player"
				envType = EnvPlayerMessage
			}
			e.publish(ctx, messageEnvelope(envType, text, sender, cfg.SuppressLLM, flow.ID, node.ID))
			return execResult{handles: []string{r.Handle}, fallback: "global"}
		}
	}
	return execResult{handles: []string{"global"}}
}

func handleForIndex(prefix string, idx int) string {
	return prefix + "-" + strconv.Itoa(idx)
}
