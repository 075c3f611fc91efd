package engine

import (
	"context"
	"math/rand"
	"time"
)

// candidate is a trigger node that matched the current event, paired with
// the ActiveFlow it lives in.
type candidate struct {
	flow *ActiveFlow
	node *Node
	cfg  *TriggerConfig
}

// handleEventLocked implements §4.1. It runs only on the executor goroutine.
func (e *Engine) handleEventLocked(ctx context.Context, eventType string, data EventData) error {
	if eventType != "idle" {
		e.lastActivity = time.Now()
	}

	if eventType == "new_session" {
		e.session = NewSessionState()
		e.triggerCooldowns = make(map[string]int)
		e.persistStepLocked(ctx)
		return nil
	}

	if eventType == "player_speaks" || eventType == "ai_speaks" {
		e.step++
		e.checkPendingPausesLocked(ctx)
	}

	if eventType == "player_state_change" {
		e.applyExternalStateChange(ctx, data)
	}

	if eventType == "device_off" && e.resolver != nil {
		if ref, err := e.resolveDevice(data.IP); err == nil {
			key := ref.String()
			e.session.ExecutionHistory[key] = DeviceExecState{State: "off"}
			delete(e.deviceMonitors, key)
			if _, ok := e.deviceOnCompletions[key]; ok {
				e.handleDeviceOnCompleteLocked(ctx, key)
			}
			if _, ok := e.cycleCompletions[key]; ok {
				e.handleCycleCompleteLocked(ctx, key)
			}
		}
	}

	if e.paused {
		e.persistStepLocked(ctx)
		return nil
	}

	candidates := e.collectCandidates(eventType, data)

	var unblockable, normal []candidate
	for _, c := range candidates {
		if c.cfg.Unblockable {
			unblockable = append(unblockable, c)
		} else {
			normal = append(normal, c)
		}
	}

	for _, c := range unblockable {
		e.fireTrigger(ctx, c)
	}

	if len(normal) > 0 {
		chosen := pickLowestCombinedPriority(normal, e.rng)
		e.maybeRunTrigger(ctx, chosen)
	}

	e.persistStepLocked(ctx)

	return nil
}

// persistStepLocked saves a session snapshot via the configured Store, if
// any. Best-effort: persistence failures are logged, not propagated, since
// losing a snapshot never blocks in-memory flow execution.
func (e *Engine) persistStepLocked(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveStep(ctx, e.runID, e.step, *e.session); err != nil {
		e.emitter.Emit(newEvent(e.runID, e.step, "", "", "store_save_failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}
}

func (e *Engine) collectCandidates(eventType string, data EventData) []candidate {
	var out []candidate
	for _, af := range e.activeFlows {
		for _, node := range af.Flow.Nodes {
			if node.Type != NodeTrigger && node.Type != NodeButtonPress {
				continue
			}
			cfg, matched := e.matchTrigger(af, node, eventType, data)
			if matched {
				out = append(out, candidate{flow: af, node: node, cfg: cfg})
			}
		}
	}
	return out
}

func (e *Engine) matchTrigger(af *ActiveFlow, node *Node, eventType string, data EventData) (*TriggerConfig, bool) {
	if node.Type == NodeButtonPress {
		bp, ok := node.Config.(*ButtonPressConfig)
		if !ok || eventType != "button_press" {
			return nil, false
		}
		if data.ButtonID != "" && bp.ButtonID != "" && data.ButtonID != bp.ButtonID {
			return nil, false
		}
		return &TriggerConfig{FireOnlyOnce: false}, true
	}

	cfg, ok := node.Config.(*TriggerConfig)
	if !ok {
		return nil, false
	}

	key := pendingKey(af.Flow.ID, node.ID)
	if cfg.FireOnlyOnce && e.fireOnceNodes[key] {
		return nil, false
	}

	if cfg.TriggerType != eventType && !(cfg.TriggerType == "first_message" && (eventType == "player_speaks" || eventType == "ai_speaks")) {
		return nil, false
	}

	if cfg.DeviceFilter != "" {
		want := cfg.DeviceFilter
		got := data.IP
		if data.ChildID != "" {
			got = got + ":" + data.ChildID
		}
		if want != got && want != data.IP {
			return nil, false
		}
	}

	switch cfg.TriggerType {
	case "player_speaks", "ai_speaks":
		if !MatchKeywords(cfg.Keywords, data.Content) {
			return nil, false
		}
		cooldown := cfg.Cooldown
		if cooldown <= 0 {
			cooldown = 5
		}
		if last, fired := e.triggerCooldowns[key]; fired && e.step-last < cooldown {
			return nil, false
		}
	case "button_press":
		if data.ButtonID != "" && cfg.ButtonID != "" && data.ButtonID != cfg.ButtonID {
			return nil, false
		}
	case "first_message":
		if e.step != 1 {
			return nil, false
		}
	case "random":
		if e.rng.Float64()*100 >= cfg.Probability {
			return nil, false
		}
	case "idle":
		threshold := cfg.IdleThresholdSeconds
		if threshold <= 0 {
			threshold = 300
		}
		if !e.isIdle(time.Duration(threshold) * time.Second) {
			return nil, false
		}
	case "player_state_change":
		if cfg.StateType != data.StateType {
			return nil, false
		}
		if !matchComparator(cfg.Comparator, data.NewValue, cfg.Threshold, cfg.RangeMax) {
			return nil, false
		}
	}

	return cfg, true
}

func matchComparator(op string, value, threshold, rangeMax float64) bool {
	switch op {
	case "meet":
		return value == threshold
	case "meet_or_exceed":
		return value >= threshold
	case "greater":
		return value > threshold
	case "less":
		return value < threshold
	case "less_or_equal":
		return value <= threshold
	case "range":
		return value >= threshold && value <= rangeMax
	case "not_equal":
		return value != threshold
	}
	return false
}

func pickLowestCombinedPriority(cands []candidate, rng *rand.Rand) candidate {
	best := combinedPriority(cands[0])
	bestIdx := []int{0}
	for i := 1; i < len(cands); i++ {
		p := combinedPriority(cands[i])
		if p < best {
			best = p
			bestIdx = []int{i}
		} else if p == best {
			bestIdx = append(bestIdx, i)
		}
	}
	if len(bestIdx) == 1 {
		return cands[bestIdx[0]]
	}
	return cands[bestIdx[rng.Intn(len(bestIdx))]]
}

func combinedPriority(c candidate) int {
	triggerPriority := 99
	if c.cfg.HasPriority {
		triggerPriority = c.cfg.Priority
	}
	return c.flow.Priority*100 + triggerPriority
}

// maybeRunTrigger applies the preemption rule of §4.1 step 7 before running
// the chosen trigger's chain.
func (e *Engine) maybeRunTrigger(ctx context.Context, c candidate) {
	if c.cfg.HasPriority && e.runningPriority != nil {
		if c.cfg.Priority < *e.runningPriority {
			e.abortEpoch++
			e.aborted = true
			e.cycleCompletions = make(map[string]*CycleCompletion)
			e.deviceOnCompletions = make(map[string]*DeviceOnCompletion)
			e.playerChoices = make(map[string]*PlayerChoicePending)
			e.challenges = make(map[string]*ChallengePending)
			e.inputs = make(map[string]*InputPending)
			e.pauseResumes = make(map[string]*PauseResumePending)
			e.activeExecutions = make(map[string]*ActiveExecution)
			e.aborted = false
			e.publish(ctx, newFlowToast("takeover", "", c.flow.Flow.Name, 0, 0, &c.cfg.Priority))
			e.fireTrigger(ctx, c)
		}
		return
	}
	e.fireTrigger(ctx, c)
}

func (e *Engine) fireTrigger(ctx context.Context, c candidate) {
	key := pendingKey(c.flow.Flow.ID, c.node.ID)
	e.triggerCooldowns[key] = e.step

	fireOnlyOnce := c.cfg.FireOnlyOnce
	if c.node.Type == NodeTrigger {
		if fireOnlyOnce {
			e.fireOnceNodes[key] = true
		}
	}

	if c.cfg.HasPriority {
		p := c.cfg.Priority
		e.runningPriority = &p
		e.runningPriorityFlow = c.flow.Flow.ID
	}

	e.emitter.Emit(newEvent(e.runID, e.step, c.flow.Flow.ID, c.node.ID, "trigger_match", map[string]interface{}{
		"priority": c.flow.Priority,
	}))

	e.executeFromNode(ctx, c.flow.Flow, c.node.ID, "", false, c.cfg.Priority, c.cfg.Notify)
}

// applyExternalStateChange mutates session state from an externally-observed
// player_state_change event (e.g. a chat-pipeline sentiment classifier),
// broadcasting the matching update and re-checking device monitors, mirroring
// what a set_variable action node does for the same two numeric fields.
func (e *Engine) applyExternalStateChange(ctx context.Context, data EventData) {
	changed := false
	switch data.StateType {
	case "capacity":
		changed = e.session.SetCapacity(int(data.NewValue))
		if changed {
			e.publish(ctx, newCapacityUpdate(e.session.Capacity))
		}
	case "pain":
		changed = e.session.SetPain(int(data.NewValue))
		if changed {
			e.publish(ctx, newPainUpdate(e.session.Pain))
		}
	}
	if changed {
		e.checkDeviceMonitorsLocked(ctx)
	}
}
