package generation

import (
	"context"
	"errors"
	"testing"
)

func TestFuncAdaptsToGenerator(t *testing.T) {
	var gotSystem, gotPrompt string
	var g Generator = Func(func(ctx context.Context, systemPrompt, prompt string) (string, error) {
		gotSystem, gotPrompt = systemPrompt, prompt
		return "reply", nil
	})

	out, err := g.Generate(context.Background(), "be terse", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "reply" {
		t.Errorf("out = %q, want reply", out)
	}
	if gotSystem != "be terse" || gotPrompt != "hello" {
		t.Errorf("got system=%q prompt=%q", gotSystem, gotPrompt)
	}
}

func TestFuncPropagatesError(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	var g Generator = Func(func(ctx context.Context, systemPrompt, prompt string) (string, error) {
		return "", wantErr
	})

	_, err := g.Generate(context.Background(), "", "")
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
