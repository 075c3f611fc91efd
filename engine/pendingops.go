package engine

import "github.com/flowcore/flowengine/device"

// PendingOp is the tagged-variant bookkeeping record that suspends a chain
// until an external condition fires. Each concrete type below corresponds to
// one of the numbered resumption sources in pendingops_resume.go (source 3,
// device monitors, uses DeviceMonitor rather than a PendingOp).
type PendingOp interface {
	pendingOp()
}

// CycleCompletion is registered by action.start_cycle and cleared by
// handleCycleComplete (or early, by action.stop_cycle).
type CycleCompletion struct {
	FlowID   string
	NodeID   string
	Infinite bool
	Device   device.Ref
}

func (CycleCompletion) pendingOp() {}

// DeviceOnCompletion is registered by action.device_on and cleared by
// handleDeviceOnComplete (device_off or an "until" monitor firing).
type DeviceOnCompletion struct {
	FlowID   string
	NodeID   string
	Infinite bool
	Device   device.Ref
}

func (DeviceOnCompletion) pendingOp() {}

// PlayerChoicePending is registered by player_choice/simple_ab and cleared
// by handlePlayerChoice.
type PlayerChoicePending struct {
	FlowID     string
	NodeID     string
	Choices    []ChoiceOption
	IsSimpleAB bool
}

func (PlayerChoicePending) pendingOp() {}

// ChallengePending is registered by any challenge node and cleared by
// handleChallengeResult.
type ChallengePending struct {
	FlowID        string
	NodeID        string
	ChallengeType NodeType
	Config        ChallengeConfig
}

func (ChallengePending) pendingOp() {}

// InputPending is registered by the input node and cleared by
// handleInputResponse.
type InputPending struct {
	FlowID       string
	NodeID       string
	VariableName string
	InputType    string
}

func (InputPending) pendingOp() {}

// PauseResumePending is registered by pause_resume and decremented/cleared
// by checkPendingPauses on every player/AI message.
type PauseResumePending struct {
	FlowID            string
	NodeID            string
	MessagesRemaining int
	ManualOnly        bool // resumeAfterType=="manual": only resumeFlows() clears this, not message count
}

func (PauseResumePending) pendingOp() {}

// DeviceMonitor is an "until" predicate evaluated on every session-state
// mutation (checkDeviceMonitors). MonitorKind records which completion path
// firing the predicate should drive — device_on or cycle — resolving the
// ambiguity the source code itself sometimes gets wrong (see DESIGN.md).
type DeviceMonitor struct {
	Type        string // capacity | pain | emotion | timer
	Operator    string
	Threshold   float64
	Value       string // emotion comparisons
	FlowID      string
	NodeID      string
	MonitorKind string // device_on | cycle
	Device      device.Ref
}

// ActiveExecution records a currently-executing flow for UI status
// reporting and priority/preemption decisions.
type ActiveExecution struct {
	FlowID          string
	FlowName        string
	TriggerPriority int
	HasPriority     bool
	Notify          bool
	CurrentNodeID   string
	TotalSteps      int
	CurrentStep     int
}
