package engine

import "context"

// messageKind discriminates the EngineMessage variants the executor accepts.
// Grounded on the teacher's WorkItem/Frontier scheduling concept
// (graph/scheduler.go), simplified from a concurrent worker pool to a
// single consumer per SPEC_FULL.md §5: spec's invariants require strict
// non-concurrent mutation of engine state, so every mutation flows through
// exactly one goroutine.
type messageKind int

const (
	msgHandleEvent messageKind = iota
	msgActivateFlow
	msgDeactivateFlow
	msgEmergencyStop
	msgPauseFlows
	msgResumeFlows
	msgPlayerChoiceResponse
	msgChallengeResult
	msgInputResponse
	msgCycleComplete
	msgDeviceOnComplete
	msgResumeContinuation // internal: a timer/IO goroutine reporting back
)

// engineMessage is one entry of the executor's mailbox. payload carries the
// kind-specific arguments; done, if non-nil, is closed (after storing err)
// once the executor has fully processed the message, letting a synchronous
// caller like HandleEvent block for the result.
type engineMessage struct {
	kind    messageKind
	payload interface{}
	done    chan error
}

// EventData is the payload of an inbound event, per spec §6. Only the
// fields relevant to a given EventType are populated.
type EventData struct {
	Content  string // player_speaks / ai_speaks
	Sender   string
	IP       string // device_on / device_off / player_state_change device filter
	ChildID  string
	State    string // device_on / device_off: "on" | "off"
	StateType string // player_state_change: capacity | pain | emotion
	NewValue float64
	ButtonID string
	FlowID   string
}

// continuation is an internal resumption closure posted back to the mailbox
// by a timer or I/O goroutine: "continue interpreting from here, if the
// world hasn't moved on". Epoch is the abortEpoch snapshot taken when the
// suspending call began.
type continuation struct {
	epoch uint64
	run   func()
}

// run is the executor's single consumer loop. It drains msgs until ctx is
// canceled or the channel is closed, dispatching each message to its
// handler and reporting the result on done.
func (e *Engine) run(ctx context.Context, msgs <-chan engineMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			err := e.dispatchMessage(ctx, m)
			if m.done != nil {
				m.done <- err
				close(m.done)
			}
		}
	}
}

func (e *Engine) dispatchMessage(ctx context.Context, m engineMessage) error {
	switch m.kind {
	case msgHandleEvent:
		p := m.payload.(handleEventPayload)
		return e.handleEventLocked(ctx, p.eventType, p.data)
	case msgActivateFlow:
		p := m.payload.(activateFlowPayload)
		return e.activateFlowLocked(p.flow, p.priority)
	case msgDeactivateFlow:
		p := m.payload.(string)
		return e.deactivateFlowLocked(p)
	case msgEmergencyStop:
		e.emergencyStopLocked()
		return nil
	case msgPauseFlows:
		p, _ := m.payload.(string)
		e.pauseFlowsLocked(p)
		return nil
	case msgResumeFlows:
		e.resumeFlowsLocked(ctx)
		return nil
	case msgPlayerChoiceResponse:
		p := m.payload.(playerChoicePayload)
		return e.handlePlayerChoiceLocked(ctx, p.flowID, p.nodeID, p.choiceID, p.label)
	case msgChallengeResult:
		p := m.payload.(challengeResultPayload)
		return e.handleChallengeResultLocked(ctx, p.flowID, p.nodeID, p.outcomeID, p.details)
	case msgInputResponse:
		p := m.payload.(inputResponsePayload)
		return e.handleInputResponseLocked(ctx, p.flowID, p.nodeID, p.value)
	case msgCycleComplete:
		p := m.payload.(deviceCompletionPayload)
		e.handleCycleCompleteLocked(ctx, p.deviceKey)
		return nil
	case msgDeviceOnComplete:
		p := m.payload.(deviceCompletionPayload)
		e.handleDeviceOnCompleteLocked(ctx, p.deviceKey)
		return nil
	case msgResumeContinuation:
		c := m.payload.(continuation)
		if c.epoch != e.abortEpoch {
			return nil
		}
		c.run()
		return nil
	}
	return nil
}

type handleEventPayload struct {
	eventType string
	data      EventData
}

type activateFlowPayload struct {
	flow     *Flow
	priority int
}

type playerChoicePayload struct {
	flowID, nodeID, choiceID, label string
}

type challengeResultPayload struct {
	flowID, nodeID, outcomeID string
	details                    map[string]interface{}
}

type inputResponsePayload struct {
	flowID, nodeID, value string
}

type deviceCompletionPayload struct {
	deviceKey string
}

// enqueue posts m to the mailbox and blocks until the executor has processed
// it, surfacing any error. Used by every public Engine method so callers
// observe a synchronous-looking API backed by the serialized executor.
func (e *Engine) enqueue(ctx context.Context, kind messageKind, payload interface{}) error {
	done := make(chan error, 1)
	msg := engineMessage{kind: kind, payload: payload, done: done}

	select {
	case e.mailbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// postContinuation re-enters the mailbox from a timer or I/O goroutine. It
// never blocks the caller on a done channel: continuations are fire-and-forget
// from the resuming goroutine's perspective.
func (e *Engine) postContinuation(c continuation) {
	e.mailbox <- engineMessage{kind: msgResumeContinuation, payload: c}
}
