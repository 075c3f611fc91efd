package engine

import "testing"

func TestClampCapacityAndPain(t *testing.T) {
	if got := ClampCapacity(-5); got != 0 {
		t.Errorf("ClampCapacity(-5) = %d, want 0", got)
	}
	if got := ClampCapacity(150); got != 100 {
		t.Errorf("ClampCapacity(150) = %d, want 100", got)
	}
	if got := ClampPain(-1); got != 0 {
		t.Errorf("ClampPain(-1) = %d, want 0", got)
	}
	if got := ClampPain(20); got != 10 {
		t.Errorf("ClampPain(20) = %d, want 10", got)
	}
}

func TestPainLabelClampsOutOfRangeInput(t *testing.T) {
	if got := PainLabel(0); got != "None" {
		t.Errorf("PainLabel(0) = %q, want None", got)
	}
	if got := PainLabel(10); got != "Excruciating" {
		t.Errorf("PainLabel(10) = %q, want Excruciating", got)
	}
	if got := PainLabel(999); got != "Excruciating" {
		t.Errorf("PainLabel(999) = %q, want clamped to Excruciating", got)
	}
}

func TestSetCapacityReportsChange(t *testing.T) {
	s := NewSessionState()
	if changed := s.SetCapacity(50); !changed {
		t.Error("expected change from 0 to 50")
	}
	if changed := s.SetCapacity(50); changed {
		t.Error("expected no change when setting the same value")
	}
	if changed := s.SetCapacity(-10); !changed {
		t.Error("expected change when clamped value differs from current")
	}
	if s.Capacity != 0 {
		t.Errorf("Capacity = %d, want 0 after clamping -10", s.Capacity)
	}
}

func TestSetPainAndEmotionReportChange(t *testing.T) {
	s := NewSessionState()
	if changed := s.SetPain(3); !changed {
		t.Error("expected change")
	}
	if changed := s.SetPain(3); changed {
		t.Error("expected no change on repeat set")
	}
	if changed := s.SetEmotion("calm"); !changed {
		t.Error("expected change")
	}
	if changed := s.SetEmotion("calm"); changed {
		t.Error("expected no change on repeat set")
	}
}

func TestAppendChatMessageTrimsToMax(t *testing.T) {
	s := NewSessionState()
	for i := 0; i < 5; i++ {
		s.AppendChatMessage(ChatMessage{ID: string(rune('a' + i))}, 3)
	}
	if len(s.ChatHistoryTail) != 3 {
		t.Fatalf("len = %d, want 3", len(s.ChatHistoryTail))
	}
	if s.ChatHistoryTail[0].ID != "c" {
		t.Errorf("oldest retained ID = %q, want c", s.ChatHistoryTail[0].ID)
	}
}

func TestAppendChatMessageUnboundedWhenMaxZero(t *testing.T) {
	s := NewSessionState()
	for i := 0; i < 10; i++ {
		s.AppendChatMessage(ChatMessage{ID: "x"}, 0)
	}
	if len(s.ChatHistoryTail) != 10 {
		t.Errorf("len = %d, want 10 when max=0 disables trimming", len(s.ChatHistoryTail))
	}
}
