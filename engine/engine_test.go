package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowcore/flowengine/device"
	"github.com/flowcore/flowengine/device/mockdriver"
)

// capturePublisher records every envelope handed to it. Safe for concurrent
// use: continuations resuming from scheduleAfter's timer goroutines publish
// from outside the caller's own goroutine.
type capturePublisher struct {
	mu   sync.Mutex
	envs []Envelope
}

func (p *capturePublisher) Publish(ctx context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *capturePublisher) snapshot() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Envelope, len(p.envs))
	copy(out, p.envs)
	return out
}

func (p *capturePublisher) countType(t string) int {
	n := 0
	for _, e := range p.snapshot() {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (p *capturePublisher) countContent(t, content string) int {
	n := 0
	for _, e := range p.snapshot() {
		if e.Type == t && e.Payload["content"] == content {
			n++
		}
	}
	return n
}

// waitUntil polls cond every 5ms until it reports true or timeout elapses,
// returning cond's final value. Used for assertions that depend on
// scheduleAfter's real-time continuations rather than synchronous HandleEvent calls.
func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	base := []Option{
		WithDriver(mockdriver.New()),
		WithPublisher(pub),
	}
	e := New(t.Context(), append(base, opts...)...)
	return e, pub
}

func mustActivate(t *testing.T, e *Engine, flow *Flow, priority int) {
	t.Helper()
	if err := e.ActivateFlow(t.Context(), flow, priority); err != nil {
		t.Fatalf("ActivateFlow: %v", err)
	}
}

// TestScenarioKeywordTriggerWithCooldown is spec.md §8 scenario 1.
func TestScenarioKeywordTriggerWithCooldown(t *testing.T) {
	e, pub := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks",
		Keywords:    []string{"*pump*"},
		Cooldown:    3,
	}}
	action := &Node{ID: "a1", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "ok"}}
	flow, err := NewFlow("f1", "Pump Flow", []*Node{trigger, action}, []Edge{{From: "t1", To: "a1"}})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	messages := []string{"pump it", "stop", "pump again", "pump three", "pump four"}
	for _, content := range messages {
		if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: content}); err != nil {
			t.Fatalf("HandleEvent(%q): %v", content, err)
		}
	}

	if got := pub.countContent(EnvAIMessage, "ok"); got != 2 {
		t.Errorf("ai_message{content:ok} count = %d, want 2 (messages #1 and #4)", got)
	}
}

// TestScenarioKeywordTriggerNeverFiredIsEligibleOnFirstMessage guards against
// the cooldown zero-value bug: an unfired trigger key must not be treated as
// "fired at step 0" when cooldown exceeds the current step.
func TestScenarioKeywordTriggerNeverFiredIsEligibleOnFirstMessage(t *testing.T) {
	e, pub := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks",
		Cooldown:    10,
	}}
	action := &Node{ID: "a1", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "hi"}}
	flow, err := NewFlow("f1", "Greeting", []*Node{trigger, action}, []Edge{{From: "t1", To: "a1"}})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "hello"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if got := pub.countContent(EnvAIMessage, "hi"); got != 1 {
		t.Fatalf("ai_message{content:hi} count = %d, want 1 on the very first message", got)
	}
}

// TestScenarioPriorityPreemption is spec.md §8 scenario 2.
func TestScenarioPriorityPreemption(t *testing.T) {
	e, pub := newTestEngine(t)

	triggerA := &Node{ID: "ta", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks", Keywords: []string{"alpha"}, HasPriority: true, Priority: 5,
	}}
	delayA := &Node{ID: "da", Type: NodeDelay, Config: &DelayConfig{Duration: "5", Unit: "seconds"}}
	doneA := &Node{ID: "ca", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "A-done"}}
	flowA, err := NewFlow("flowA", "Flow A", []*Node{triggerA, delayA, doneA}, []Edge{
		{From: "ta", To: "da"}, {From: "da", To: "ca"},
	})
	if err != nil {
		t.Fatalf("NewFlow A: %v", err)
	}

	triggerB := &Node{ID: "tb", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks", Keywords: []string{"bravo"}, HasPriority: true, Priority: 2,
	}}
	doneB := &Node{ID: "cb", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "B-done"}}
	flowB, err := NewFlow("flowB", "Flow B", []*Node{triggerB, doneB}, []Edge{{From: "tb", To: "cb"}})
	if err != nil {
		t.Fatalf("NewFlow B: %v", err)
	}

	mustActivate(t, e, flowA, PriorityGlobal)
	mustActivate(t, e, flowB, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "alpha"}); err != nil {
		t.Fatalf("HandleEvent(alpha): %v", err)
	}
	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "bravo"}); err != nil {
		t.Fatalf("HandleEvent(bravo): %v", err)
	}

	if !waitUntil(time.Second, func() bool { return pub.countContent(EnvAIMessage, "B-done") == 1 }) {
		t.Fatal("expected B-done to be broadcast")
	}

	if got := pub.countType(EnvFlowToast); got < 1 {
		t.Errorf("flow_toast count = %d, want at least 1 (takeover)", got)
	}
	foundTakeover := false
	for _, env := range pub.snapshot() {
		if env.Type == EnvFlowToast && env.Payload["event"] == "takeover" {
			foundTakeover = true
		}
	}
	if !foundTakeover {
		t.Error("expected a flow_toast{event:takeover}")
	}

	// A-done must never appear: A's delay continuation was aborted by B's preemption.
	time.Sleep(100 * time.Millisecond)
	if got := pub.countContent(EnvAIMessage, "A-done"); got != 0 {
		t.Errorf("A-done count = %d, want 0 (A's continuation must not survive preemption)", got)
	}
}

// TestScenarioPlayerChoice is spec.md §8 scenario 5.
func TestScenarioPlayerChoice(t *testing.T) {
	e, pub := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks"}}
	choice := &Node{ID: "pc", Type: NodePlayerChoice, Config: &PlayerChoiceConfig{
		Choices: []ChoiceOption{
			{ID: "a", Label: "yes", PlayerResponse: "I say [Choice]", PlayerResponseSuppressLLM: true},
			{ID: "b", Label: "no"},
		},
	}}
	after := &Node{ID: "after", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "continued"}}
	flow, err := NewFlow("choices", "Choices", []*Node{trigger, choice, after}, []Edge{
		{From: "t1", To: "pc"},
		{From: "pc", To: "after", Handle: "a"},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "start"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if err := e.HandlePlayerChoice(t.Context(), "choices", "pc", "a", "yes"); err != nil {
		t.Fatalf("HandlePlayerChoice: %v", err)
	}

	if got := pub.countContent(EnvChatMessage, "I say yes"); got != 1 {
		t.Errorf("chat_message{content:'I say yes'} count = %d, want 1", got)
	}
	if got := pub.countContent(EnvAIMessage, "continued"); got != 1 {
		t.Errorf("expected the chain to continue via handle \"a\"; ai_message{content:continued} count = %d", got)
	}
}

// TestChallengeResultRoutesByOutcomeHandle exercises
// pendingops_resume.go's handleChallengeResultLocked: resolving a pending
// challenge must publish its result message and continue along the edge
// matching the reported outcome id, not any other outcome's edge.
func TestChallengeResultRoutesByOutcomeHandle(t *testing.T) {
	e, pub := newTestEngine(t)

	roll := &Node{ID: "roll", Type: NodeDiceRoll, Config: &ChallengeConfig{
		PossibleOutcomes: []string{"win", "lose"},
		ResultMessages:   map[string]string{"win": "you win", "lose": "you lose"},
	}}
	winNode := &Node{ID: "win", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "win-path"}}
	loseNode := &Node{ID: "lose", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "lose-path"}}
	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks"}}
	flow, err := NewFlow("game", "Game", []*Node{trigger, roll, winNode, loseNode}, []Edge{
		{From: "t1", To: "roll"},
		{From: "roll", To: "win", Handle: "win"},
		{From: "roll", To: "lose", Handle: "lose"},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "go"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := pub.countType(EnvChallenge); got != 1 {
		t.Fatalf("challenge envelope count = %d, want 1", got)
	}

	if err := e.HandleChallengeResult(t.Context(), "game", "roll", "win", nil); err != nil {
		t.Fatalf("HandleChallengeResult: %v", err)
	}

	if got := pub.countContent(EnvAIMessage, "you win"); got != 1 {
		t.Errorf("ai_message{content:'you win'} count = %d, want 1", got)
	}
	if got := pub.countContent(EnvAIMessage, "win-path"); got != 1 {
		t.Errorf("expected the chain to continue via the \"win\" handle; win-path count = %d", got)
	}
	if got := pub.countContent(EnvAIMessage, "lose-path"); got != 0 {
		t.Errorf("lose-path count = %d, want 0 (must not follow the unchosen outcome's edge)", got)
	}
}

// TestScenarioPauseResumeAcrossMessages is spec.md §8 scenario 6.
func TestScenarioPauseResumeAcrossMessages(t *testing.T) {
	devices := device.NewCatalogResolver([]device.Record{
		{ID: "pump1", Name: "primary_pump", IP: "10.0.0.5", Brand: "mock", DeviceType: "pump", IsPrimaryPump: true},
	})
	driver := mockdriver.New()
	pub := &capturePublisher{}
	e := New(t.Context(), WithDriver(driver), WithResolver(devices), WithPublisher(pub))

	pause := &Node{ID: "pr", Type: NodePauseResume, Config: &PauseResumeConfig{ResumeAfterValue: 2, ResumeAfterType: "messages"}}
	off := &Node{ID: "off", Type: NodeAction, Config: &ActionConfig{Kind: ActionDeviceOff, Device: "primary_pump"}}
	resumed := &Node{ID: "resumed", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "resumed"}}
	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks", Keywords: []string{"begin"}}}
	flow, err := NewFlow("pauseflow", "Pause", []*Node{trigger, pause, off, resumed}, []Edge{
		{From: "t1", To: "pr"},
		{From: "pr", To: "off", Handle: "source-pause"},
		{From: "pr", To: "resumed", Handle: "source-resume"},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "begin"}); err != nil {
		t.Fatalf("HandleEvent(begin): %v", err)
	}
	calls := driver.Calls()
	if len(calls) != 1 || calls[0].Method != "TurnOff" {
		t.Fatalf("expected a single TurnOff call immediately on pause entry, got %+v", calls)
	}

	for i, content := range []string{"msg one", "msg two", "msg three"} {
		if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: content}); err != nil {
			t.Fatalf("HandleEvent(%q): %v", content, err)
		}
		wantResumed := i >= 1 // resumed after the 2nd message, i.e. index 1
		got := pub.countContent(EnvAIMessage, "resumed") == 1
		if wantResumed && !got {
			t.Errorf("after message #%d: expected \"resumed\" to have been broadcast", i+2)
		}
		if !wantResumed && got {
			t.Errorf("after message #%d: \"resumed\" broadcast too early", i+2)
		}
	}
}

// TestInvariantVariableBoundsClampSetVariable covers §8's "Variable bounds" invariant.
func TestInvariantVariableBoundsClampSetVariable(t *testing.T) {
	e, _ := newTestEngine(t)

	setCapacity := &Node{ID: "sc", Type: NodeAction, Config: &ActionConfig{Kind: ActionSetVariable, VariableName: "capacity", VariableValue: "500"}}
	setPain := &Node{ID: "sp", Type: NodeAction, Config: &ActionConfig{Kind: ActionSetVariable, VariableName: "pain", VariableValue: "-5"}}
	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks"}}
	flow, err := NewFlow("bounds", "Bounds", []*Node{trigger, setCapacity, setPain}, []Edge{
		{From: "t1", To: "sc"}, {From: "sc", To: "sp"},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "go"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	session := e.Session()
	if session.Capacity != 100 {
		t.Errorf("Capacity = %d, want clamped to 100", session.Capacity)
	}
	if session.Pain != 0 {
		t.Errorf("Pain = %d, want clamped to 0", session.Pain)
	}
}

// TestInvariantFireOnlyOnceFiresAtMostOncePerFlowLifetime covers §8's
// "Once-only" invariant for a trigger node.
func TestInvariantFireOnlyOnceFiresAtMostOncePerFlowLifetime(t *testing.T) {
	e, pub := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks", FireOnlyOnce: true}}
	action := &Node{ID: "a1", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "once"}}
	flow, err := NewFlow("onceflow", "Once", []*Node{trigger, action}, []Edge{{From: "t1", To: "a1"}})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	for i := 0; i < 3; i++ {
		if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "hi"}); err != nil {
			t.Fatalf("HandleEvent #%d: %v", i, err)
		}
	}

	if got := pub.countContent(EnvAIMessage, "once"); got != 1 {
		t.Errorf("ai_message{content:once} count = %d, want exactly 1 across 3 matching events", got)
	}
}

// TestEmergencyStopClearsPendingOpsButPreservesFireOnceNodes exercises
// control.go's emergencyStopLocked and the documented Open Question decision
// that fireOnlyOnce markers survive an emergency stop.
func TestEmergencyStopClearsPendingOpsButPreservesFireOnceNodes(t *testing.T) {
	e, pub := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks", FireOnlyOnce: true}}
	respond := &Node{ID: "a1", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "hi-response"}}
	flow, err := NewFlow("stopflow", "Stop", []*Node{trigger, respond}, []Edge{{From: "t1", To: "a1"}})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "hi"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := pub.countContent(EnvAIMessage, "hi-response"); got != 1 {
		t.Fatalf("ai_message{content:hi-response} count = %d, want 1 before the stop", got)
	}
	if err := e.EmergencyStop(t.Context()); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	if got := pub.countType(EnvFlowToast); got == 0 {
		t.Error("expected at least the emergency_stop flow_toast to have been published")
	}

	// Re-activating after an emergency stop and firing the same event again
	// must not re-fire the once-only trigger, since fireOnceNodes survives
	// an emergency stop.
	mustActivate(t, e, flow, PriorityGlobal)
	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "hi again"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := pub.countContent(EnvAIMessage, "hi-response"); got != 1 {
		t.Errorf("ai_message{content:hi-response} count = %d, want still 1 after re-activation (fireOnlyOnce must survive emergency stop)", got)
	}
}

// TestExecuteFromNodeDepthCapStopsRunawayCycle covers §8's
// "Depth-nonnegativity" invariant and the spec.md §9 safety-net design note.
func TestExecuteFromNodeDepthCapStopsRunawayCycle(t *testing.T) {
	e, _ := newTestEngine(t)

	trigger := &Node{ID: "t1", Type: NodeTrigger, Config: &TriggerConfig{TriggerType: "player_speaks"}}
	// branch -> branch, an unconditional self-loop with no fireOnlyOnce guard.
	loop := &Node{ID: "loop", Type: NodeBranch, Config: &BranchConfig{Mode: "sequential"}}
	flow, err := NewFlow("loopflow", "Loop", []*Node{trigger, loop}, []Edge{
		{From: "t1", To: "loop"},
		{From: "loop", To: "loop", Handle: "branch-0"},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	mustActivate(t, e, flow, PriorityGlobal)

	done := make(chan error, 1)
	go func() {
		done <- e.HandleEvent(context.Background(), "player_speaks", EventData{Content: "go"})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("HandleEvent did not return: the depth cap failed to stop the self-loop")
	}

	if depth := e.executionDepths["loopflow"]; depth < 0 {
		t.Errorf("executionDepths[loopflow] = %d, want >= 0", depth)
	}
}

// TestPulsePumpDoesNotBlockPreemption exercises the fix making pulse_pump
// suspend via scheduleAfter instead of blocking the executor in time.Sleep:
// a higher-priority trigger fired mid-pulse must still be able to preempt.
func TestPulsePumpDoesNotBlockPreemption(t *testing.T) {
	devices := device.NewCatalogResolver([]device.Record{
		{ID: "pump1", Name: "primary_pump", IP: "10.0.0.9", Brand: "mock", DeviceType: "pump"},
	})
	driver := mockdriver.New()
	pub := &capturePublisher{}
	e := New(t.Context(), WithDriver(driver), WithResolver(devices), WithPublisher(pub))

	triggerA := &Node{ID: "ta", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks", Keywords: []string{"pulse"}, HasPriority: true, Priority: 5,
	}}
	pulse := &Node{ID: "pulse", Type: NodeAction, Config: &ActionConfig{Kind: ActionPulsePump, Device: "primary_pump", Pulses: "5"}}
	flowA, err := NewFlow("pulseflow", "Pulse", []*Node{triggerA, pulse}, []Edge{{From: "ta", To: "pulse"}})
	if err != nil {
		t.Fatalf("NewFlow A: %v", err)
	}

	triggerB := &Node{ID: "tb", Type: NodeTrigger, Config: &TriggerConfig{
		TriggerType: "player_speaks", Keywords: []string{"bravo"}, HasPriority: true, Priority: 1,
	}}
	doneB := &Node{ID: "cb", Type: NodeAction, Config: &ActionConfig{Kind: ActionSendMessage, Text: "B-done"}}
	flowB, err := NewFlow("otherflow", "Other", []*Node{triggerB, doneB}, []Edge{{From: "tb", To: "cb"}})
	if err != nil {
		t.Fatalf("NewFlow B: %v", err)
	}

	mustActivate(t, e, flowA, PriorityGlobal)
	mustActivate(t, e, flowB, PriorityGlobal)

	start := time.Now()
	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "pulse"}); err != nil {
		t.Fatalf("HandleEvent(pulse): %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("HandleEvent(pulse) took %v to return; pulse_pump must suspend rather than block the executor", elapsed)
	}

	if err := e.HandleEvent(t.Context(), "player_speaks", EventData{Content: "bravo"}); err != nil {
		t.Fatalf("HandleEvent(bravo): %v", err)
	}

	if !waitUntil(time.Second, func() bool { return pub.countContent(EnvAIMessage, "B-done") == 1 }) {
		t.Fatal("expected B-done to be broadcast promptly; pulse_pump must not have blocked the mailbox")
	}
}
