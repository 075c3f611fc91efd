package engine

import (
	"context"
	"time"

	"github.com/flowcore/flowengine/device"
)

// execAction implements §4.3's action node switch.
func (e *Engine) execAction(ctx context.Context, flow *Flow, node *Node) execResult {
	cfg, ok := node.Config.(*ActionConfig)
	if !ok {
		return execResult{}
	}

	switch cfg.Kind {
	case ActionSendMessage:
		text := Substitute(cfg.Text, e.session, substitutionContext{})
		e.publish(ctx, newAIMessage(text, cfg.SuppressLLM, flow.ID, node.ID))
	case ActionSendPlayerMessage:
		text := Substitute(cfg.Text, e.session, substitutionContext{})
		e.publish(ctx, newPlayerMessage(text, cfg.SuppressLLM, flow.ID, node.ID))
	case ActionSystemMessage:
		e.publish(ctx, newSystemMessage(cfg.Text))
	case ActionDeviceOn:
		return e.execDeviceOn(ctx, flow, node, cfg)
	case ActionDeviceOff:
		return e.execDeviceOff(ctx, flow, node, cfg)
	case ActionStartCycle:
		return e.execStartCycle(ctx, flow, node, cfg)
	case ActionStopCycle:
		return e.execStopCycle(ctx, flow, node, cfg)
	case ActionPulsePump:
		return e.execPulsePump(ctx, flow, node, cfg)
	case ActionDeclareVariable, ActionSetVariable:
		e.execSetVariable(ctx, cfg)
	case ActionToggleReminder:
		e.publish(ctx, newReminderUpdated(cfg.ReminderID, "toggle", cfg.IsGlobal))
	case ActionToggleButton:
		e.publish(ctx, newReminderUpdated(cfg.ButtonID, "toggle_button", cfg.IsGlobal))
	}
	return execResult{}
}

func (e *Engine) execDeviceOn(ctx context.Context, flow *Flow, node *Node, cfg *ActionConfig) execResult {
	ref, err := e.resolveDevice(cfg.Device)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "device_on"))
		return execResult{}
	}
	key := ref.String()
	if st, ok := e.session.ExecutionHistory[key]; ok && st.State == "on" {
		return execResult{deferred: "device_on"}
	}
	if ref.IsPump && e.session.Capacity >= 100 && !cfg.AllowOverInflation {
		e.publish(ctx, newPumpSafetyBlock("capacity_at_max", e.session.Capacity, key, "device_on"))
		return execResult{deferred: "device_on"}
	}
	if err := e.driver.TurnOn(ctx, ref); err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "device_on"))
		return execResult{deferred: "device_on"}
	}
	e.session.ExecutionHistory[key] = DeviceExecState{State: "on"}
	e.deviceOnCompletions[key] = &DeviceOnCompletion{FlowID: flow.ID, NodeID: node.ID, Device: ref}

	if cfg.Until != nil {
		e.registerDeviceMonitor(flow.ID, node.ID, "device_on", key, ref, *cfg.Until)
	}
	return execResult{deferred: "device_on"}
}

func (e *Engine) execDeviceOff(ctx context.Context, flow *Flow, node *Node, cfg *ActionConfig) execResult {
	ref, err := e.resolveDevice(cfg.Device)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "device_off"))
		return execResult{}
	}
	key := ref.String()
	if st, ok := e.session.ExecutionHistory[key]; ok && st.State == "off" {
		return execResult{}
	}
	if err := e.driver.TurnOff(ctx, ref); err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "device_off"))
		return execResult{}
	}
	e.session.ExecutionHistory[key] = DeviceExecState{State: "off"}
	delete(e.deviceMonitors, key)

	if _, ok := e.deviceOnCompletions[key]; ok {
		e.handleDeviceOnCompleteLocked(ctx, key)
	}
	return execResult{}
}

func (e *Engine) execStartCycle(ctx context.Context, flow *Flow, node *Node, cfg *ActionConfig) execResult {
	ref, err := e.resolveDevice(cfg.Device)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "start_cycle"))
		return execResult{}
	}
	key := ref.String()
	if st, ok := e.session.ExecutionHistory[key]; ok && st.Cycling {
		return execResult{deferred: "start_cycle"}
	}

	duration := durationFromSpec(cfg.Duration, e.session)
	interval := durationFromSpec(cfg.Interval, e.session)

	if err := e.driver.StartCycle(ctx, ref, duration, interval, cfg.Cycles); err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "start_cycle"))
		return execResult{}
	}
	e.session.ExecutionHistory[key] = DeviceExecState{State: "on", Cycling: true}

	infinite := cfg.Cycles == 0 && cfg.Until == nil
	e.cycleCompletions[key] = &CycleCompletion{FlowID: flow.ID, NodeID: node.ID, Infinite: infinite, Device: ref}

	if cfg.Until != nil {
		e.registerDeviceMonitor(flow.ID, node.ID, "cycle", key, ref, *cfg.Until)
	} else if !infinite {
		total := cycleTotalDuration(duration, interval, cfg.Cycles)
		e.scheduleAfter(total, func() {
			if e.aborted {
				return
			}
			e.handleCycleCompleteLocked(ctx, key)
		})
	}

	if infinite {
		e.publish(ctx, newInfiniteCycleEnvelope(true, key, flow.ID, node.ID))
	}
	return execResult{deferred: "start_cycle"}
}

func (e *Engine) execStopCycle(ctx context.Context, flow *Flow, node *Node, cfg *ActionConfig) execResult {
	ref, err := e.resolveDevice(cfg.Device)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "stop_cycle"))
		return execResult{}
	}
	key := ref.String()
	hadActive, err := e.driver.StopCycle(ctx, ref)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "stop_cycle"))
		return execResult{}
	}
	if !hadActive {
		_ = e.driver.TurnOff(ctx, ref)
	}
	delete(e.deviceMonitors, key)
	e.session.ExecutionHistory[key] = DeviceExecState{State: "off"}

	if _, ok := e.cycleCompletions[key]; ok {
		e.handleCycleCompleteLocked(ctx, key)
	}
	return execResult{}
}

// execPulsePump implements the pulse_pump action: n on/off cycles of the
// device, 1s on and 1s off each. It suspends the flow (wait: true) and
// drives the pulses through scheduleAfter rather than blocking the executor
// goroutine in a sleep loop, so preemption (abortEpoch) can still interrupt
// the sequence between pulses instead of freezing every other flow for its
// duration.
func (e *Engine) execPulsePump(ctx context.Context, flow *Flow, node *Node, cfg *ActionConfig) execResult {
	ref, err := e.resolveDevice(cfg.Device)
	if err != nil {
		e.publish(ctx, newErrorEnvelope(err.Error(), "pulse_pump"))
		return execResult{}
	}
	n := int(ResolveFlowVarNumeric(cfg.Pulses, e.session, 1))
	if n <= 0 {
		return execResult{}
	}
	e.runPulseStep(ctx, flow, node, ref, n, 0)
	return execResult{wait: true}
}

// runPulseStep runs pulse i of total, then schedules pulse i+1, or (once
// i reaches total) resumes the flow along the node's outgoing edges.
func (e *Engine) runPulseStep(ctx context.Context, flow *Flow, node *Node, ref device.Ref, total, i int) {
	if e.aborted {
		return
	}
	if i >= total {
		for _, edge := range flow.EdgesFrom(node.ID) {
			e.executeFromNode(ctx, flow, edge.To, edge.Handle, true, 0, false)
		}
		return
	}
	if err := e.driver.TurnOn(ctx, ref); err != nil {
		_ = e.driver.TurnOff(ctx, ref)
		return
	}
	e.scheduleAfter(time.Second, func() {
		if e.aborted {
			return
		}
		if err := e.driver.TurnOff(ctx, ref); err != nil {
			return
		}
		if i == total-1 {
			e.runPulseStep(ctx, flow, node, ref, total, i+1)
			return
		}
		e.scheduleAfter(time.Second, func() {
			e.runPulseStep(ctx, flow, node, ref, total, i+1)
		})
	})
}

func (e *Engine) execSetVariable(ctx context.Context, cfg *ActionConfig) {
	if cfg.IsCustomVariable {
		e.session.FlowVariables[cfg.VariableName] = cfg.VariableValue
		return
	}
	switch cfg.VariableName {
	case "capacity":
		v := ClampCapacity(atoiDefault(cfg.VariableValue, e.session.Capacity))
		if e.session.SetCapacity(v) {
			e.publish(ctx, newCapacityUpdate(v))
			e.checkDeviceMonitorsLocked(ctx)
		}
	case "pain":
		v := ClampPain(atoiDefault(cfg.VariableValue, e.session.Pain))
		if e.session.SetPain(v) {
			e.publish(ctx, newPainUpdate(v))
			e.checkDeviceMonitorsLocked(ctx)
		}
	case "emotion":
		if e.session.SetEmotion(cfg.VariableValue) {
			e.publish(ctx, newEmotionUpdate(cfg.VariableValue))
			e.checkDeviceMonitorsLocked(ctx)
		}
	default:
		e.session.FlowVariables[cfg.VariableName] = cfg.VariableValue
	}
}

func (e *Engine) registerDeviceMonitor(flowID, nodeID, kind, key string, ref device.Ref, u UntilCondition) {
	if u.Type == "timer" {
		d := durationFromSpec(u.Duration, e.session)
		e.scheduleAfter(d, func() {
			if e.aborted {
				return
			}
			ctx := context.Background()
			if kind == "cycle" {
				_, _ = e.driver.StopCycle(ctx, ref)
				e.handleCycleCompleteLocked(ctx, key)
			} else {
				_ = e.driver.TurnOff(ctx, ref)
				e.handleDeviceOnCompleteLocked(ctx, key)
			}
		})
		return
	}
	e.deviceMonitors[key] = &DeviceMonitor{
		Type: u.Type, Operator: u.Operator, Threshold: u.Threshold, Value: u.Value,
		FlowID: flowID, NodeID: nodeID, MonitorKind: kind, Device: ref,
	}
}

func durationFromSpec(spec string, session *SessionState) time.Duration {
	secs := ResolveFlowVarNumeric(spec, session, 0)
	return time.Duration(secs * float64(time.Second))
}

func atoiDefault(s string, def int) int {
	v, ok := parseFloat(s)
	if !ok {
		return def
	}
	return int(v)
}
