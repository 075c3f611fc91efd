package engine

import "context"

// Envelope is the typed outbound broadcast the engine hands to a Publisher.
// Payload shape is defined by Type; see the constructors below for the exact
// fields each type carries.
type Envelope struct {
	Type    string
	Payload map[string]interface{}
}

// Publisher delivers outbound Envelopes to UI clients. The interpreter
// awaits Publish for ordering (fire-and-forget from the UI's perspective,
// but the engine serializes on the call returning).
//
// The engine applies the abort-epoch gating rule of §5 itself, in
// Engine.publish, before calling Publish: while the engine has aborted=true,
// flow-carrying envelope types (aiMessage, playerMessage, systemMessage,
// chatMessage, playerChoice, simpleAB, challenge, inputRequest) are dropped,
// and status types (flowToast, flowExecutionsUpdate, error, flowPaused) are
// still delivered. Implementations receive only envelopes that passed it.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Outbound envelope type constants, per spec §6.
const (
	EnvAIMessage            = "ai_message"
	EnvPlayerMessage         = "player_message"
	EnvSystemMessage         = "system_message"
	EnvChatMessage           = "chat_message"
	EnvPlayerChoice          = "player_choice"
	EnvSimpleAB              = "simple_ab"
	EnvChallenge             = "challenge"
	EnvInputRequest          = "input_request"
	EnvCapacityUpdate        = "capacity_update"
	EnvPainUpdate            = "pain_update"
	EnvEmotionUpdate         = "emotion_update"
	EnvInfiniteCycleStart    = "infinite_cycle_start"
	EnvInfiniteCycleEnd      = "infinite_cycle_end"
	EnvPumpSafetyBlock       = "pump_safety_block"
	EnvReminderUpdated       = "reminder_updated"
	EnvCharactersUpdate      = "characters_update"
	EnvFlowToast             = "flow_toast"
	EnvFlowPaused            = "flow_paused"
	EnvFlowExecutionsUpdate  = "flow_executions_update"
	EnvError                 = "error"
)

// flowCarryingEnvelopes is the set of envelope types subject to abort-epoch
// gating (Engine.publish consults this via IsFlowCarrying; kept here so the
// contract lives next to the envelope constants it governs).
var flowCarryingEnvelopes = map[string]bool{
	EnvAIMessage:     true,
	EnvPlayerMessage: true,
	EnvSystemMessage: true,
	EnvChatMessage:   true,
	EnvPlayerChoice:  true,
	EnvSimpleAB:      true,
	EnvChallenge:     true,
	EnvInputRequest:  true,
}

// IsFlowCarrying reports whether envelope type t is subject to abort-epoch
// gating per §5.
func IsFlowCarrying(t string) bool {
	return flowCarryingEnvelopes[t]
}

func messageEnvelope(envType, content, sender string, suppressLLM bool, flowID, nodeID string) Envelope {
	return Envelope{Type: envType, Payload: map[string]interface{}{
		"content":     content,
		"sender":      sender,
		"suppressLlm": suppressLLM,
		"flowId":      flowID,
		"nodeId":      nodeID,
	}}
}

func newAIMessage(content string, suppressLLM bool, flowID, nodeID string) Envelope {
	return messageEnvelope(EnvAIMessage, content, "character", suppressLLM, flowID, nodeID)
}

func newPlayerMessage(content string, suppressLLM bool, flowID, nodeID string) Envelope {
	return messageEnvelope(EnvPlayerMessage, content, "player", suppressLLM, flowID, nodeID)
}

func newSystemMessage(content string) Envelope {
	return Envelope{Type: EnvSystemMessage, Payload: map[string]interface{}{"content": content}}
}

func newChatMessage(msg ChatMessage) Envelope {
	return Envelope{Type: EnvChatMessage, Payload: map[string]interface{}{
		"id":         msg.ID,
		"content":    msg.Content,
		"sender":     msg.Sender,
		"timestamp":  msg.Timestamp,
		"generated":  msg.Generated,
		"fromChoice": msg.FromChoice,
	}}
}

func newPlayerChoiceEnvelope(nodeID, description string, choices []ChoiceOption) Envelope {
	opts := make([]map[string]interface{}, len(choices))
	for i, c := range choices {
		opts[i] = map[string]interface{}{"id": c.ID, "label": c.Label}
	}
	return Envelope{Type: EnvPlayerChoice, Payload: map[string]interface{}{
		"nodeId":      nodeID,
		"description": description,
		"choices":     opts,
	}}
}

func newSimpleABEnvelope(nodeID string, cfg SimpleABConfig) Envelope {
	return Envelope{Type: EnvSimpleAB, Payload: map[string]interface{}{
		"nodeId":      nodeID,
		"description": cfg.Description,
		"labelA":      cfg.LabelA,
		"descriptionA": cfg.DescriptionA,
		"labelB":      cfg.LabelB,
		"descriptionB": cfg.DescriptionB,
	}}
}

func newChallengeEnvelope(nodeID string, challengeType NodeType, cfg ChallengeConfig) Envelope {
	return Envelope{Type: EnvChallenge, Payload: map[string]interface{}{
		"nodeId":           nodeID,
		"challengeType":    string(challengeType),
		"possibleOutcomes": cfg.PossibleOutcomes,
		"config":           cfg.Params,
	}}
}

func newInputRequestEnvelope(nodeID string, cfg InputConfig) Envelope {
	payload := map[string]interface{}{
		"nodeId":       nodeID,
		"prompt":       cfg.Prompt,
		"inputType":    cfg.InputType,
		"variableName": cfg.VariableName,
		"required":     cfg.Required,
	}
	if cfg.MinValue != nil {
		payload["minValue"] = *cfg.MinValue
	}
	if cfg.MaxValue != nil {
		payload["maxValue"] = *cfg.MaxValue
	}
	return Envelope{Type: EnvInputRequest, Payload: payload}
}

func newCapacityUpdate(capacity int) Envelope {
	return Envelope{Type: EnvCapacityUpdate, Payload: map[string]interface{}{"capacity": capacity}}
}

func newPainUpdate(pain int) Envelope {
	return Envelope{Type: EnvPainUpdate, Payload: map[string]interface{}{"pain": pain}}
}

func newEmotionUpdate(emotion string) Envelope {
	return Envelope{Type: EnvEmotionUpdate, Payload: map[string]interface{}{"emotion": emotion}}
}

func newInfiniteCycleEnvelope(start bool, deviceKey, flowID, nodeID string) Envelope {
	t := EnvInfiniteCycleEnd
	if start {
		t = EnvInfiniteCycleStart
	}
	return Envelope{Type: t, Payload: map[string]interface{}{"device": deviceKey, "flowId": flowID, "nodeId": nodeID}}
}

func newPumpSafetyBlock(reason string, capacity int, deviceKey, source string) Envelope {
	return Envelope{Type: EnvPumpSafetyBlock, Payload: map[string]interface{}{
		"reason": reason, "capacity": capacity, "device": deviceKey, "source": source,
	}}
}

func newReminderUpdated(reminderID, action string, isGlobal bool) Envelope {
	return Envelope{Type: EnvReminderUpdated, Payload: map[string]interface{}{
		"reminderId": reminderID, "action": action, "isGlobal": isGlobal,
	}}
}

func newFlowToast(event, message, flowName string, currentStep, totalSteps int, priority *int) Envelope {
	payload := map[string]interface{}{
		"event":    event,
		"message":  message,
		"flowName": flowName,
	}
	if currentStep > 0 {
		payload["currentStep"] = currentStep
	}
	if totalSteps > 0 {
		payload["totalSteps"] = totalSteps
	}
	if priority != nil {
		payload["priority"] = *priority
	}
	return Envelope{Type: EnvFlowToast, Payload: payload}
}

func newFlowPaused(paused bool, reason string) Envelope {
	return Envelope{Type: EnvFlowPaused, Payload: map[string]interface{}{"paused": paused, "reason": reason}}
}

func newFlowExecutionsUpdate(executions []ActiveExecution) Envelope {
	list := make([]map[string]interface{}, len(executions))
	for i, ex := range executions {
		list[i] = map[string]interface{}{
			"flowId":        ex.FlowID,
			"flowName":      ex.FlowName,
			"currentNodeId": ex.CurrentNodeID,
			"currentStep":   ex.CurrentStep,
			"totalSteps":    ex.TotalSteps,
		}
	}
	return Envelope{Type: EnvFlowExecutionsUpdate, Payload: map[string]interface{}{"executions": list}}
}

func newErrorEnvelope(message, context string) Envelope {
	return Envelope{Type: EnvError, Payload: map[string]interface{}{"message": message, "context": context}}
}
