// Package engine implements the flow-execution engine: a dispatcher that
// matches inbound events against trigger nodes across a set of active flows,
// and an interpreter that walks each matched flow's node/edge graph to
// completion or suspension.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/flowcore/flowengine/device"
	"github.com/flowcore/flowengine/engine/emit"
	"github.com/flowcore/flowengine/engine/store"
	"github.com/flowcore/flowengine/generation"
)

// Engine owns all mutable session/flow state and serializes every mutation
// through a single executor goroutine (see mailbox.go). Exported methods other
// than Session enqueue a message for the executor rather than touching state
// directly; Session reads the state without going through the executor.
type Engine struct {
	mailbox chan engineMessage

	driver    device.Driver
	resolver  device.Resolver
	generator generation.Generator
	publisher Publisher
	emitter   emit.Emitter
	store     store.Store

	rng *rand.Rand

	runID string
	step  int

	session    *SessionState
	paused     bool
	pauseReason string

	activeFlows map[string]*ActiveFlow
	flowStates  map[string]*FlowState

	executionDepths    map[string]int
	activeExecutions   map[string]*ActiveExecution
	runningPriority    *int
	runningPriorityFlow string

	cycleCompletions    map[string]*CycleCompletion
	deviceOnCompletions map[string]*DeviceOnCompletion
	playerChoices       map[string]*PlayerChoicePending
	challenges          map[string]*ChallengePending
	inputs              map[string]*InputPending
	pauseResumes        map[string]*PauseResumePending
	deviceMonitors      map[string]*DeviceMonitor

	triggerCooldowns map[string]int // key flowID+":"+nodeID -> messageCount at last fire
	fireOnceNodes    map[string]bool

	abortEpoch  uint64
	aborted     bool
	lastActivity time.Time

	chatHistoryMax int
}

// Option configures an Engine at construction time, following the teacher's
// functional-options convention (graph/option.go).
type Option func(*Engine)

// WithDriver injects the device actuation layer.
func WithDriver(d device.Driver) Option { return func(e *Engine) { e.driver = d } }

// WithResolver injects device-reference resolution (flow device string -> device.Ref).
func WithResolver(r device.Resolver) Option { return func(e *Engine) { e.resolver = r } }

// WithGenerator injects the LLM text-generation backend.
func WithGenerator(g generation.Generator) Option { return func(e *Engine) { e.generator = g } }

// WithPublisher injects the outbound broadcast transport.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

// WithEmitter injects the observability sink. Defaults to emit.NewNullEmitter().
func WithEmitter(em emit.Emitter) Option { return func(e *Engine) { e.emitter = em } }

// WithStore injects session-snapshot persistence. Unconfigured by default
// (snapshots are skipped silently).
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithRNG overrides the engine's random source, primarily for deterministic tests.
func WithRNG(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

// WithChatHistoryMax bounds SessionState.ChatHistoryTail's retained length. Defaults to 20.
func WithChatHistoryMax(n int) Option {
	return func(e *Engine) { e.chatHistoryMax = n }
}

// WithRunID sets the run identifier attached to emitted events. Defaults to "run".
func WithRunID(id string) Option { return func(e *Engine) { e.runID = id } }

// New constructs an Engine with a fresh SessionState and starts its executor
// goroutine bound to ctx. Callers must eventually cancel ctx to stop it.
func New(ctx context.Context, opts ...Option) *Engine {
	e := &Engine{
		mailbox:             make(chan engineMessage, 64),
		rng:                 rand.New(rand.NewSource(1)),
		runID:               "run",
		session:             NewSessionState(),
		activeFlows:         make(map[string]*ActiveFlow),
		flowStates:          make(map[string]*FlowState),
		executionDepths:     make(map[string]int),
		activeExecutions:    make(map[string]*ActiveExecution),
		cycleCompletions:    make(map[string]*CycleCompletion),
		deviceOnCompletions: make(map[string]*DeviceOnCompletion),
		playerChoices:       make(map[string]*PlayerChoicePending),
		challenges:          make(map[string]*ChallengePending),
		inputs:              make(map[string]*InputPending),
		pauseResumes:        make(map[string]*PauseResumePending),
		deviceMonitors:      make(map[string]*DeviceMonitor),
		triggerCooldowns:    make(map[string]int),
		fireOnceNodes:       make(map[string]bool),
		lastActivity:        time.Now(),
		chatHistoryMax:      20,
		emitter:             emit.NewNullEmitter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run(ctx, e.mailbox)
	return e
}

func pendingKey(flowID, nodeID string) string {
	return flowID + ":" + nodeID
}

// HandleEvent feeds one inbound event (player_speaks, ai_speaks, device_on,
// device_off, player_state_change, button_press, idle) to the dispatcher and
// blocks until it has been fully processed.
func (e *Engine) HandleEvent(ctx context.Context, eventType string, data EventData) error {
	return e.enqueue(ctx, msgHandleEvent, handleEventPayload{eventType: eventType, data: data})
}

// ActivateFlow adds flow to the active set at priority. Re-activating an
// already-active flow ID replaces its FlowState per §3's invariant that a
// flow ID is unique within the active set.
func (e *Engine) ActivateFlow(ctx context.Context, flow *Flow, priority int) error {
	return e.enqueue(ctx, msgActivateFlow, activateFlowPayload{flow: flow, priority: priority})
}

// DeactivateFlow removes flowID from the active set and discards its FlowState.
func (e *Engine) DeactivateFlow(ctx context.Context, flowID string) error {
	return e.enqueue(ctx, msgDeactivateFlow, flowID)
}

// EmergencyStop advances the abort epoch, turns off every device with any
// recorded execution state, and clears all pending ops per §4.5.
func (e *Engine) EmergencyStop(ctx context.Context) error {
	return e.enqueue(ctx, msgEmergencyStop, nil)
}

// PauseFlows suspends dispatch of new trigger matches (pending ops already
// registered continue to accept their resumption events) until ResumeFlows.
func (e *Engine) PauseFlows(ctx context.Context, reason string) error {
	return e.enqueue(ctx, msgPauseFlows, reason)
}

// ResumeFlows lifts a prior PauseFlows and resolves any PauseResumePending
// ops whose ResumeAfterType is "manual".
func (e *Engine) ResumeFlows(ctx context.Context) error {
	return e.enqueue(ctx, msgResumeFlows, nil)
}

// HandlePlayerChoice resolves a pending player_choice or simple_ab node.
func (e *Engine) HandlePlayerChoice(ctx context.Context, flowID, nodeID, choiceID, label string) error {
	return e.enqueue(ctx, msgPlayerChoiceResponse, playerChoicePayload{flowID, nodeID, choiceID, label})
}

// HandleChallengeResult resolves a pending challenge node with outcomeID
// (one of ChallengeConfig.PossibleOutcomes) and optional structured details.
func (e *Engine) HandleChallengeResult(ctx context.Context, flowID, nodeID, outcomeID string, details map[string]interface{}) error {
	return e.enqueue(ctx, msgChallengeResult, challengeResultPayload{flowID, nodeID, outcomeID, details})
}

// HandleInputResponse resolves a pending input node with the player's raw value.
func (e *Engine) HandleInputResponse(ctx context.Context, flowID, nodeID, value string) error {
	return e.enqueue(ctx, msgInputResponse, inputResponsePayload{flowID, nodeID, value})
}

// Session returns a shallow copy of the current session state, read directly
// rather than through the executor. Its map and slice fields share storage
// with the live state, and it does not reflect events still in flight.
func (e *Engine) Session() SessionState {
	return *e.session
}
