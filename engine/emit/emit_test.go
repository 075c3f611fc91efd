package emit

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)

	e.Emit(Event{RunID: "sess-1", Step: 2, FlowID: "greeting", NodeID: "n3", Msg: "node_enter"})

	out := buf.String()
	if !strings.Contains(out, "[node_enter]") {
		t.Fatalf("expected msg tag in output, got %q", out)
	}
	if !strings.Contains(out, "runID=sess-1") || !strings.Contains(out, "flowID=greeting") {
		t.Fatalf("expected runID/flowID fields, got %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)

	e.Emit(Event{RunID: "sess-1", Step: 1, NodeID: "n1", Msg: "trigger_match"})

	out := buf.String()
	if !strings.Contains(out, `"msg":"trigger_match"`) {
		t.Fatalf("expected JSON msg field, got %q", out)
	}
}

func TestLogEmitterEmitBatchPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)

	events := []Event{
		{RunID: "s", Step: 1, Msg: "a"},
		{RunID: "s", Step: 2, Msg: "b"},
	}
	if err := e.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Index(out, "[a]") > strings.Index(out, "[b]") {
		t.Fatalf("expected a before b, got %q", out)
	}
}

func TestBufferedEmitterHistory(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{RunID: "run1", Step: 1, NodeID: "n1", Msg: "node_enter"})
	e.Emit(Event{RunID: "run1", Step: 2, NodeID: "n2", Msg: "node_exit"})
	e.Emit(Event{RunID: "run2", Step: 1, NodeID: "n1", Msg: "node_enter"})

	hist := e.GetHistory("run1")
	if len(hist) != 2 {
		t.Fatalf("expected 2 events for run1, got %d", len(hist))
	}

	filtered := e.GetHistoryWithFilter("run1", HistoryFilter{Msg: "node_exit"})
	if len(filtered) != 1 || filtered[0].NodeID != "n2" {
		t.Fatalf("expected single node_exit event for n2, got %+v", filtered)
	}

	e.Clear("run1")
	if len(e.GetHistory("run1")) != 0 {
		t.Fatalf("expected run1 history cleared")
	}
	if len(e.GetHistory("run2")) != 1 {
		t.Fatalf("expected run2 history untouched")
	}
}

func TestNullEmitterDiscardsWithoutPanic(t *testing.T) {
	e := NewNullEmitter()
	e.Emit(Event{RunID: "x", Msg: "anything"})
	if err := e.EmitBatch(context.Background(), []Event{{RunID: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
